// Package resolver is the control plane of the home automation bus.
//
// A Resolver owns the live inventory, the variable store, the environment
// and the aggregated schema, and holds the durable directory and the
// per-application config store. It reacts to two kinds of bus traffic:
//
//   - events, handled by HandleEvent, which keep the live inventory and the
//     variables current;
//   - requests, handled by HandleRequest, which are either administrative
//     commands addressed to the controller's own UUID or inventory queries
//     addressed to anything else.
//
// # Reactor
//
// None of the state is locked. Every mutation runs on one goroutine, the
// reactor started by Run; bus handlers, the discovery scheduler and the
// status server hand work to it with Submit or Do. HandleEvent,
// HandleRequest, Inventory and BroadcastDiscover may be called directly
// only when nothing else is running, as tests do.
//
// # Staleness
//
// A device is flagged stale when an inventory query finds it unseen for
// more than twice the discovery interval. Nothing evaluates staleness in
// the background; a re-announce or a device.stale event clears the flag.
package resolver
