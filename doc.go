// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package dissect implements streaming dissection of nested, untrusted
// container archives. It walks an archive tree of arbitrary depth (an
// outer ar-style container holding compressed tar-style members, which
// may themselves contain further archives), extracts every member that
// survives path confinement and resource ceilings, and produces a
// structured manifest describing everything it found.
//
// The engine never trusts the declared structure of its input. Declared
// entry paths are validated against the extraction root before a single
// byte is written, recursive descent is bounded by depth, byte, and
// entry ceilings, and self-referential archives are pruned by a
// content-hash cycle guard scoped to the active recursion path. Any
// single corrupt or malicious member degrades to a recorded warning;
// the walk continues with the remaining siblings.
package dissect
