// Package httpserver provides the HTTP server shell of the session coordinator.
//
// BaseServer wraps a chi router with request IDs, real-IP detection, panic
// recovery and structured request logging, and runs a Prometheus metrics server
// next to the API. Component handlers plug in through RouteRegistrar.
//
// # Server Lifecycle
//
//  1. Initialization: New builds the router from the registrars
//  2. Startup: RunInBackground starts the API and metrics servers
//  3. Readiness Control: /drain and /undrain flip the readiness flag; a drain
//     that is not undone within DrainDuration closes Drained
//  4. Graceful Shutdown: Shutdown waits for in-flight requests
//
// # Health and Diagnostics
//
//   - /livez always answers while the process runs
//   - /readyz answers 503 while the server is drained
//   - /debug/pprof when EnablePprof is set
//
// CORS for browser participants is enabled on component routes when
// CORSAllowedOrigins is non-empty.
//
// # Usage Example
//
//	coordinator := services.NewHTTPCoordinator(session, sessionMetrics, log)
//
//	srv, err := httpserver.New(&httpserver.HTTPServerConfig{
//	    ListenAddr:  ":8080",
//	    MetricsAddr: ":9090",
//	    Log:         log,
//	}, coordinator)
//	if err != nil {
//	    return err
//	}
//
//	srv.RunInBackground()
//	<-srv.Drained()
//	srv.Shutdown()
package httpserver
