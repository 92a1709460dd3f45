// Copyright 2015 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package htfs

import (
	"context"

	"github.com/jacobsa/reqtrace"
)

// startOp opens a trace span named opType and returns a traced context plus
// a finish function that reports the terminal error to the span and logs
// the outcome. Adapted from fuseops/common_op.go's commonOp.init/respond/
// respondErr trio, which opens the span once per request and reports
// exactly once when the response (or error) is produced.
func (fs *adapter) startOp(ctx context.Context, opType string) (context.Context, func(err error)) {
	tracedCtx, report := reqtrace.StartSpan(ctx, opType)

	finish := func(err error) {
		report(err)
		if err != nil {
			fs.log.WithError(err).WithField("op", opType).Debug("-> error")
			return
		}
		fs.log.WithField("op", opType).Debug("-> ok")
	}
	return tracedCtx, finish
}
