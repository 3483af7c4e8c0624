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

package infologger

// Logrus entry data keys which map directly to InfoLogger protocol
// fields. Anything else in the entry data is appended to the message.
const (
	System    = "system"
	Facility  = "facility"
	Role      = "rolename"
	Detector  = "detector"
	Partition = "partition"
	Run       = "run"
	ErrCode   = "errcode"
	ErrLine   = "errline"
	ErrSource = "errsource"
	Level     = "level"
)

var Fields = map[string]bool{
	System:    true,
	Facility:  true,
	Role:      true,
	Detector:  true,
	Partition: true,
	Run:       true,
	ErrCode:   true,
	ErrLine:   true,
	ErrSource: true,
	Level:     true,
}
