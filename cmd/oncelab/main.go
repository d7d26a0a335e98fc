// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// oncelab runs the once benchmark suite under hardware performance
// counters, archives the results, simulates cache behavior of inlined
// and outlined fast paths, measures generated code size and serves a
// chart dashboard over the run history.
package main

func main() {
	Execute()
}
