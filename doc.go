// Copyright 2011 Xing Xing <mikespook@gmail.com> All rights reserved.
// Use of this source code is governed by a MIT
// license that can be found in the LICENSE file.

/*
dispatchling is a worker agent for the dispatch protocol (historically
known as Gearman). It registers a single function with a dispatch
server and executes each assigned job by running an external command as
a child process, streaming the child's progress and result back over
the wire.

The engine package implements the connection and protocol state
machine:

	import "github.com/kestrelco/dispatchling/engine"

engine/metrics and engine/diag provide a Prometheus recorder and a
small HTTP surface for operating a running worker, respectively. The
cmd package wires all of it into the dispatchling CLI.
*/
package main
