// Package enet implements a reliable UDP transport: a single-socket
// Host multiplexing up to PeerCount simultaneous Peer connections,
// each carrying one or more independently-sequenced Channels with
// reliable, unreliable, and unsequenced delivery, fragmentation for
// payloads larger than one datagram, and RTT-driven flow control.
//
// A typical server loop binds a Host, then alternates Service (which
// reads pending datagrams and paces queued sends) with CheckEvents
// (which drains whatever became ready as a result):
//
//	host, err := enet.NewHost(enet.HostConfig{Address: addr, PeerCount: 32})
//	for {
//		host.Service()
//		for {
//			ev, ok := host.CheckEvents()
//			if !ok {
//				break
//			}
//			// handle ev
//		}
//	}
//
// Host.Run wraps that loop as a callback-driven convenience for
// callers that don't need to interleave other work between ticks.
//
// The engine is single-threaded and cooperative: Service, Connect,
// Peer.Send, and CheckEvents must all be called from the same
// goroutine. Nothing here uses a mutex; callers that need to drive a
// Host from multiple goroutines must serialize access themselves.
package enet
