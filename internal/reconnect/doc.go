// Package reconnect classifies station disconnect reasons into retry
// decisions.
//
// Classify is a pure, total function. Every reason code, defined or not,
// lands in exactly one Bucket:
//
//	fatal             auth expired, handshake timeout, 802.1X failure,
//	                  invalid cipher/AKM/PMKID   -> no retry, auto-reconnect off
//	not_found         no AP found (any threshold) -> retry after 2s
//	protocol_timeout  4-way, group key, SA query  -> retry immediately
//	signal_loss       beacon timeout, timeout     -> retry after 1s
//	transient         roaming, BSS transition,
//	                  peer/AP initiated, TSF reset -> retry after 1s
//	overloaded        too many stations, bandwidth -> retry after 2s
//	user_initiated    deassociated due to leaving -> no retry
//	default           everything else             -> retry after 2s
//
// Reason.String returns the driver's description of the code and
// "Unknown reason" for undefined values.
package reconnect
