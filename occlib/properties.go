/*
 * === This file is part of ALICE O² ===
 *
 * Copyright 2020-2023 CERN and copyright holders of ALICE O².
 * Author: Teo Mrnjavac <teo.mrnjavac@cern.ch>
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 *
 * In applying this license CERN does not waive the privileges and
 * immunities granted to it by virtue of its status as an
 * Intergovernmental Organization or submit itself to any jurisdiction.
 */

package occlib

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/AliceO2Group/occ/protos"
	"github.com/spf13/viper"
)

// ErrMalformedTypedKey is reported when a __ptree__ typed-subtree key
// cannot be decoded. The offending entry is dropped, the surrounding
// transition continues.
var ErrMalformedTypedKey = errors.New("malformed typed key")

const ptreePrefix = "__ptree__:"

// typedChannelKeys are channel properties which the device runtime
// expects as integers rather than strings.
var typedChannelKeys = []string{
	"rateLogging",
	"rcvBufSize",
	"sndBufSize",
	"linger",
	"rcvKernelSize",
	"sndKernelSize",
}

// Property is a single decoded configuration injection. Value is a
// string, an int for typed channel properties, or a
// map[string]interface{} subtree for typed-subtree payloads.
type Property struct {
	Key   string
	Value interface{}
}

// PropertyMap is the ordered list of decoded property injections for a
// single transition. Order matters: the task may observe side effects
// between successive injections.
type PropertyMap []Property

func (pm PropertyMap) Get(key string) (value interface{}, ok bool) {
	for i := len(pm) - 1; i >= 0; i-- {
		if pm[i].Key == key {
			return pm[i].Value, true
		}
	}
	return nil, false
}

func (pm PropertyMap) GetString(key string, fallback string) string {
	v, ok := pm.Get(key)
	if !ok {
		return fallback
	}
	if s, isString := v.(string); isString {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// runNumber extracts the run number pushed by the control agent, 0 if
// absent or unparsable.
func (pm PropertyMap) runNumber() RunNumber {
	rns := pm.GetString("runNumber", "0")
	rn, err := strconv.ParseUint(rns, 10, 32)
	if err != nil {
		return RunNumberUndefined
	}
	return RunNumber(rn)
}

// DecodeProperties turns the flat key-value arguments of a transition
// request into an ordered PropertyMap. Malformed typed-subtree entries
// are dropped with a log message and do not fail the decode.
func DecodeProperties(arguments []*pb.ConfigEntry) PropertyMap {
	properties := make(PropertyMap, 0, len(arguments))
	for _, entry := range arguments {
		if entry == nil {
			continue
		}
		if strings.HasPrefix(entry.Key, ptreePrefix) {
			newKey, subtree, err := PropMapEntryToTree(entry.Key, entry.Value)
			if err != nil {
				log.WithError(err).
					WithField("key", entry.Key).
					Warn("dropping configuration payload entry")
				continue
			}
			properties = append(properties, Property{Key: newKey, Value: subtree})
			continue
		}
		properties = append(properties, Property{
			Key:   entry.Key,
			Value: ChannelPropertyValue(entry.Key, entry.Value),
		})
	}
	return properties
}

// ChannelPropertyValue applies the integer typing rule for channel
// configuration: a chans.<name>.<prop> key whose final segment is one
// of the typed channel keys is injected as int. On parse failure the
// value silently stays a string.
func ChannelPropertyValue(key string, value string) interface{} {
	if !strings.HasPrefix(key, "chans.") {
		return value
	}
	split := strings.Split(key, ".")
	last := split[len(split)-1]
	for _, tk := range typedChannelKeys {
		if last == tk {
			if intValue, err := strconv.Atoi(value); err == nil {
				return intValue
			}
			return value
		}
	}
	return value
}

// PropMapEntryToTree decodes a typed-subtree entry of the form
// __ptree__:<ini|json|xml>:<newKey>. The value is parsed as a document
// in the named syntax and returned as a nested tree to be attached at
// newKey.
func PropMapEntryToTree(key string, value string) (newKey string, tree map[string]interface{}, err error) {
	split := strings.Split(key, ":")
	if len(split) != 3 {
		return "", nil, fmt.Errorf("%w: bad shape for configuration payload key %s", ErrMalformedTypedKey, key)
	}

	syntax := split[1]
	newKey = split[2]

	switch syntax {
	case "ini", "json":
		v := viper.New()
		v.SetConfigType(syntax)
		if err = v.ReadConfig(strings.NewReader(value)); err != nil {
			return "", nil, fmt.Errorf("%w: cannot load %s payload for key %s: %s", ErrMalformedTypedKey, syntax, key, err.Error())
		}
		tree = v.AllSettings()
	case "xml":
		tree, err = xmlToTree(strings.NewReader(value))
		if err != nil {
			return "", nil, fmt.Errorf("%w: cannot load xml payload for key %s: %s", ErrMalformedTypedKey, key, err.Error())
		}
	default:
		return "", nil, fmt.Errorf("%w: bad syntax declaration for configuration payload key %s", ErrMalformedTypedKey, key)
	}
	return newKey, tree, nil
}

// xmlToTree walks an XML document into a nested string-keyed tree.
// Viper has no XML backend, so this is done by hand: elements become
// subtrees or leaf strings, attributes are ignored like whitespace.
func xmlToTree(r io.Reader) (map[string]interface{}, error) {
	decoder := xml.NewDecoder(r)
	root := make(map[string]interface{})

	type frame struct {
		name     string
		tree     map[string]interface{}
		charData string
	}
	stack := []frame{{tree: root}}

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := token.(type) {
		case xml.StartElement:
			stack = append(stack, frame{name: t.Name.Local, tree: make(map[string]interface{})})
		case xml.CharData:
			stack[len(stack)-1].charData += string(t)
		case xml.EndElement:
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			parent := &stack[len(stack)-1]
			if len(top.tree) > 0 {
				parent.tree[top.name] = top.tree
			} else {
				parent.tree[top.name] = strings.TrimSpace(top.charData)
			}
		}
	}
	if len(stack) != 1 {
		return nil, errors.New("unbalanced xml document")
	}
	return root, nil
}
