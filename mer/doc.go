// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package mer enumerates fixed-length k-mers over a small base alphabet and
// maps them to strand-canonical representatives.
//
// A k-mer is encoded as an integer code in radix len(bases), with the first
// base in the least significant digit. Enumerating codes 0, 1, 2, ... thus
// yields "AAA", "CAA", "GAA", "TAA", "ACA", ... for k=3 over ACGT. This order
// is the column order of profile tables and must not change.
package mer
