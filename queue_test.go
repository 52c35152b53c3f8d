// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy of
// the License at
//
//  http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations under
// the License.

package couchstore

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestQueue_order(t *testing.T) {
	var q queue
	var (
		mu  sync.Mutex
		got []int
		wg  sync.WaitGroup
	)
	const n = 100
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		q.submit(func() {
			defer wg.Done()
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		})
	}
	wg.Wait()
	want := make([]int, n)
	for i := range want {
		want[i] = i
	}
	if d := cmp.Diff(want, got); d != "" {
		t.Error(d)
	}
}

func TestQueue_serial(t *testing.T) {
	var q queue
	var (
		active  int32
		overlap int32
		wg      sync.WaitGroup
	)
	const n = 20
	wg.Add(n)
	for i := 0; i < n; i++ {
		q.submit(func() {
			defer wg.Done()
			if atomic.AddInt32(&active, 1) > 1 {
				atomic.StoreInt32(&overlap, 1)
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&active, -1)
		})
	}
	wg.Wait()
	if atomic.LoadInt32(&overlap) != 0 {
		t.Error("tasks ran concurrently")
	}
}

func TestQueue_restart(t *testing.T) {
	var q queue
	done := make(chan struct{})
	q.submit(func() { close(done) })
	<-done
	// Give the worker a chance to observe the empty backlog and exit.
	for {
		q.mu.Lock()
		running := q.running
		q.mu.Unlock()
		if !running {
			break
		}
		time.Sleep(time.Millisecond)
	}
	again := make(chan struct{})
	q.submit(func() { close(again) })
	select {
	case <-again:
	case <-time.After(5 * time.Second):
		t.Fatal("task submitted after drain never ran")
	}
}
