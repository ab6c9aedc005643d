// Package shutdown runs cleanup hooks when the process is asked to stop.
//
//	h := shutdown.NewHandler(15 * time.Second)
//	h.OnShutdown("http", srv.Shutdown)
//	h.OnShutdown("badger", func(context.Context) error { return engine.Close() })
//	err := h.Wait(ctx) // blocks until SIGINT/SIGTERM or ctx is done
//
// Hooks run in reverse registration order under a shared deadline, so
// components registered first (storage) are closed last.
package shutdown
