// Package flash emulates the storage semantics of a NOR flash chip on top of
// a file.
//
// The device is a fixed-size byte array split into equally sized sectors.
// Erasing a sector sets every byte in it to the blank value (0xFF by
// default). Writing can only clear bits: each stored byte becomes the AND of
// its previous value and the requested one, so data written over a region
// that was not erased may differ from what was asked for. Such writes are
// reported as anomalies but still succeed, the way real hardware behaves.
//
// All state lives in the backing Store. A Device opens the medium for each
// operation and closes it before returning, and it does no locking.
//
// Reads and writes that find the medium missing format it and retry once.
// If the medium is still unavailable the condition is treated as fatal: the
// default handler logs and exits the process, which is the intended
// behaviour for a test harness. Programs embedding a Device should install
// their own handler with WithFatalHandler.
//
// Basic use:
//
//	dev, err := flash.New(flash.NewFileStore("memory.bin"), flash.DefaultGeometry())
//	if err != nil {
//	    return err
//	}
//	if err := dev.EnsureReady(); err != nil {
//	    return err
//	}
//	if err := dev.EraseSector(0x1000); err != nil {
//	    return err
//	}
//	if _, err := dev.Write(0x1000, payload); err != nil {
//	    return err
//	}
package flash
