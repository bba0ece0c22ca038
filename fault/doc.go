// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package fault - typed error constants
//
// each error is a constant of one of a small set of string types so
// callers compare with == (or errors.Cause after wrapping) and
// classify with the IsErrXxx helpers
package fault
