// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package client implements the sync client process.
//
// It wires the client services, the background workers and the optional
// operator dashboard into a single process lifecycle.
package client
