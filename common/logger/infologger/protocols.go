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

// Package infologger provides InfoLogger protocol implementation for
// integration with the ALICE InfoLogger logging system.
package infologger

type protoVersion string

const v14 = protoVersion("1.4")

type fieldSpec struct {
	name string
}

type protoSpec []fieldSpec

// Field order on the wire is fixed per protocol version.
var protocols = map[protoVersion]*protoSpec{
	v14: {
		{name: "severity"},
		{name: "level"},
		{name: "timestamp"},
		{name: "hostname"},
		{name: "rolename"},
		{name: "pid"},
		{name: "username"},
		{name: "system"},
		{name: "facility"},
		{name: "detector"},
		{name: "partition"},
		{name: "run"},
		{name: "errcode"},
		{name: "errline"},
		{name: "errsource"},
		{name: "message"},
	},
}
