// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build race

package once

// RaceEnabled reports whether the race detector is enabled.
// Tests that rely on raw memory-order visibility consult it to skip.
const RaceEnabled = true
