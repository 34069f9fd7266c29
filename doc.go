// Package mavros is a client SDK for the mavros parameter services exposed
// over NATS. It keeps a cached, event-synchronized view of a vehicle's
// parameter table and reads and writes the common parameter file dialects.
//
// # Architecture
//
// The SDK is split into small packages, each owning one concern:
//
//   - natsclient: the NATS connection with circuit breaker and health
//     monitoring. All requests and subscriptions go through it.
//   - param: the parameter cache (Store), the remote call helpers and the
//     three file dialects (MavProxy, Mission Planner, QGroundControl).
//   - config: JSON configuration with defaults and validation.
//   - metric: Prometheus metrics for pulls, sets, events and connection
//     health.
//   - errors: the classified error taxonomy (transient, invalid, fatal)
//     shared by all packages.
//
// The root package ties them together: Client owns the connection, the
// metrics registry and a lazily started parameter Store.
//
// # Usage
//
//	cfg := config.DefaultConfig()
//	client, err := mavros.New(cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	ctx := context.Background()
//	if err := client.Connect(ctx); err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close(ctx)
//
//	store, err := client.Param(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//	alt, err := store.Get("RTL_ALT")
//
// Remote calls are bounded by config.ParamConfig.CallTimeout (5s by
// default). A call made while the connection is down fails with the
// transient ErrServiceUnavailable after at most one timeout, never by
// blocking indefinitely.
package mavros
