/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package docstore wires the configured document store, repositories and
// message transport into process-wide globals.
//
//	cfg := config.MustLoad("docstore.yaml")
//	if err := docstore.Init(ctx, cfg); err != nil {
//		log.Fatal(err)
//	}
//	defer docstore.Close()
//
//	orders := docstore.NewService[Order]()
//	id, err := orders.Save(ctx, &Order{Total: 3}, userID)
package docstore
