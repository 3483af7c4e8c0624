/*
 * === This file is part of ALICE O² ===
 *
 * Copyright 2018-2023 CERN and copyright holders of ALICE O².
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
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

const subscriptionQueueSize = 64

// GenerateSubscriptionId returns a fresh subscription id of the form
// OCC_<purpose>_<uuid>. If the entropy source fails we fall back to a
// timestamp, an id clash being preferable to no subscription at all.
func GenerateSubscriptionId(purpose string) string {
	var id string
	uid, err := uuid.NewRandom()
	if err != nil {
		log.WithError(err).
			Warn("uuid generation failed, falling back to timestamp")
		id = fmt.Sprintf("%d", time.Now().UnixNano())
	} else {
		id = uid.String()
	}
	if len(purpose) > 0 {
		return "OCC_" + purpose + "_" + id
	}
	return "OCC_" + id
}

// subscriberRegistry fans out notifications to a dynamic set of
// bounded subscriber queues. Delivery is best effort per subscriber:
// when a queue is full the oldest notification is dropped so the
// freshest state always gets through. Safe for concurrent use.
type subscriberRegistry[T any] struct {
	mu     sync.Mutex
	queues map[string]chan T
}

func newSubscriberRegistry[T any]() *subscriberRegistry[T] {
	return &subscriberRegistry[T]{
		queues: make(map[string]chan T),
	}
}

// Subscribe registers a new bounded queue and returns its id along
// with the receive side of the queue.
func (r *subscriberRegistry[T]) Subscribe(purpose string) (id string, queue <-chan T) {
	id = GenerateSubscriptionId(purpose)
	ch := make(chan T, subscriptionQueueSize)

	r.mu.Lock()
	r.queues[id] = ch
	r.mu.Unlock()
	return id, ch
}

// Unsubscribe removes the queue and closes it. Buffered notifications
// still in flight are discarded by the closing.
func (r *subscriberRegistry[T]) Unsubscribe(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ch, ok := r.queues[id]; ok {
		delete(r.queues, id)
		close(ch)
	}
}

// Publish delivers the notification to every currently registered
// subscriber without ever blocking the publisher.
func (r *subscriberRegistry[T]) Publish(notification T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ch := range r.queues {
		for {
			select {
			case ch <- notification:
			default:
				// Queue full: drop the oldest entry and retry.
				select {
				case <-ch:
				default:
				}
				continue
			}
			break
		}
	}
}

func (r *subscriberRegistry[T]) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queues)
}
