//go:build wasip1

package system

import (
	"github.com/wippyai/wavedash/guest"
)

var defaultApp *App

// Default returns the session bound to the wavedash exports. Build the guest
// with -buildmode=c-shared and populate it from init functions.
func Default() *App {
	if defaultApp == nil {
		defaultApp = NewApp(guest.Default())
	}
	return defaultApp
}

// Errors become traps so the host sees the call fail.
func must(err error) {
	if err != nil {
		panic(err)
	}
}

//go:wasmexport wavedash_main
func wavedashMain() {
	app := Default()
	if _, ok := app.entries[DefaultEntry]; !ok {
		return
	}
	must(app.RunEntry(DefaultEntry))
}

//go:wasmexport wavedash_init
func wavedashInit() {
	must(Default().Init())
}

//go:wasmexport wavedash_system_count
func wavedashSystemCount() uint32 {
	return Default().SystemCount()
}

//go:wasmexport wavedash_run_system
func wavedashRunSystem(id uint32) {
	must(Default().RunSystem(SystemHandle(id)))
}
