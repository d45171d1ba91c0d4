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

package docerr

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type Cause int

const (
	CauseUnknown Cause = iota
	CauseCanceled
	CauseDeadline
	CauseNotFound
	CauseAlreadyExists
	CauseUnavailable
	CausePermission
	CauseInvalid
)

func (c Cause) String() string {
	switch c {
	case CauseCanceled:
		return "canceled"
	case CauseDeadline:
		return "deadline_exceeded"
	case CauseNotFound:
		return "not_found"
	case CauseAlreadyExists:
		return "already_exists"
	case CauseUnavailable:
		return "unavailable"
	case CausePermission:
		return "permission_denied"
	case CauseInvalid:
		return "invalid_argument"
	default:
		return "unknown"
	}
}

// Causer is implemented by store errors that already know their cause.
type Causer interface {
	StoreCause() Cause
}

// Classify maps a raw store failure onto a Cause. Annotated errors and context
// errors are recognized first, then gRPC statuses, then common driver messages.
func Classify(err error) Cause {
	if err == nil {
		return CauseUnknown
	}
	var c Causer
	if errors.As(err, &c) {
		return c.StoreCause()
	}
	switch {
	case errors.Is(err, context.Canceled):
		return CauseCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return CauseDeadline
	}

	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.Canceled:
			return CauseCanceled
		case codes.DeadlineExceeded:
			return CauseDeadline
		case codes.NotFound:
			return CauseNotFound
		case codes.AlreadyExists:
			return CauseAlreadyExists
		case codes.Unavailable, codes.ResourceExhausted, codes.Aborted:
			return CauseUnavailable
		case codes.PermissionDenied, codes.Unauthenticated:
			return CausePermission
		case codes.InvalidArgument, codes.FailedPrecondition, codes.OutOfRange:
			return CauseInvalid
		}
	}

	s := strings.ToLower(err.Error())
	switch {
	case strings.Contains(s, "connection refused"),
		strings.Contains(s, "database is closed"),
		strings.Contains(s, "bad connection"),
		strings.Contains(s, "broken pipe"):
		return CauseUnavailable
	case strings.Contains(s, "duplicate key"),
		strings.Contains(s, "unique constraint failed"):
		return CauseAlreadyExists
	case strings.Contains(s, "no such table"),
		strings.Contains(s, "undefined table"):
		return CauseInvalid
	}
	return CauseUnknown
}

// Retryable reports whether the classified cause is transient.
func (c Cause) Retryable() bool {
	return c == CauseUnavailable || c == CauseDeadline
}
