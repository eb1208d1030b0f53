// Package ixnrest drives an IxNetwork appliance through its REST API.
//
// A Client is bound to one session opened by Connect. Commands that the
// appliance runs as jobs are awaited before they return, so every call has a
// synchronous contract. Object references are opaque paths taken from the
// links the appliance returns.
package ixnrest
