// SPDX-License-Identifier: Apache-2.0

// Command freelistctl replays allocator operation traces and renders the
// resulting free list.
package main

func main() {
	execute()
}
