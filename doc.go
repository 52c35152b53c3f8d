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

// Package couchstore prepares a CouchDB database for use by an application.
//
// A [Manager] is created once at service startup with the [Parameters]
// describing the database, the design document name and the views it should
// contain. Creation immediately schedules a bootstrap run that
//
//  1. checks whether the database exists,
//  2. creates it if it does not, and
//  3. installs (or replaces) the design document _design/<DesignName>.
//
// Failure at any step is fatal: the error is logged and passed to the fatal
// handler, which by default terminates the process. Use [WithFatalHandler] to
// observe failures instead, for example in tests.
//
// Example:
//
//	mgr := couchstore.New(couchstore.Parameters{
//		DatabaseName: "orders",
//		DesignName:   "orders_views",
//		Views: []couchstore.View{
//			{Name: "by_status", MapFunction: "function(doc){emit(doc.status,doc)}"},
//		},
//		Connection: couchstore.ConnectionProperties{Scheme: "http", Host: "localhost", Port: 5984},
//	})
//	if err := mgr.Wait(ctx); err != nil {
//		// only reached with a non-exiting fatal handler
//	}
//	db := mgr.DB()
package couchstore
