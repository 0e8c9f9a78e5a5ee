// Package system injects host resources into guest functions.
//
// A system declares its resources as parameters. Read parameters fetch a
// copy; Write parameters fetch a copy and write it back when the system
// returns, on success, error and panic alike:
//
//	counter := system.Write[uint64]("Counter")
//	name := system.Read[string]("Name")
//	tick, err := system.Func2("tick", counter, name,
//	    func(c *system.ResMut[uint64], n *system.Res[string]) error {
//	        *c.Get()++
//	        return nil
//	    })
//
// Parameters resolve left to right and release in reverse order. A system
// may not read and write the same key; two reads, or two writes, of one key
// are allowed and each does its own round trip.
//
// An App collects entries, init hooks and systems for one guest session.
// Under GOOS=wasip1 the package exports wavedash_main, wavedash_init,
// wavedash_system_count and wavedash_run_system, all driven by Default.
package system
