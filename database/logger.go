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

package database

import (
	"sync"

	"github.com/tomoncle/docstore/utils"
)

// Logger is the key/value logger used by the database layer.
type Logger = utils.Logger

// GetLogger returns the shared DATABASE logger. Managers and migrators fall
// back to it when none is set.
var GetLogger = sync.OnceValue(func() Logger {
	return utils.NewLogger("DATABASE")
})
