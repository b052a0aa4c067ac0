package reconnect

import (
	"fmt"
	"time"
)

// Bucket groups reason codes that share a retry disposition.
type Bucket int

const (
	// BucketDefault covers unspecified and unrecognized reasons.
	BucketDefault Bucket = iota
	// BucketFatal covers credential and security negotiation failures.
	BucketFatal
	// BucketNotFound covers scans that did not find the target network.
	BucketNotFound
	// BucketProtocolTimeout covers key exchange timeouts.
	BucketProtocolTimeout
	// BucketSignalLoss covers beacon loss and generic link timeouts.
	BucketSignalLoss
	// BucketTransient covers roaming and peer or AP initiated drops.
	BucketTransient
	// BucketOverloaded covers APs that refuse more clients.
	BucketOverloaded
	// BucketUserInitiated covers a local, deliberate disconnect.
	BucketUserInitiated
)

// String returns the bucket name used in logs and metric labels.
func (b Bucket) String() string {
	switch b {
	case BucketDefault:
		return "default"
	case BucketFatal:
		return "fatal"
	case BucketNotFound:
		return "not_found"
	case BucketProtocolTimeout:
		return "protocol_timeout"
	case BucketSignalLoss:
		return "signal_loss"
	case BucketTransient:
		return "transient"
	case BucketOverloaded:
		return "overloaded"
	case BucketUserInitiated:
		return "user_initiated"
	default:
		return fmt.Sprintf("Bucket(%d)", int(b))
	}
}

// Retry delays per bucket.
const (
	ImmediateDelay    = 0 * time.Millisecond
	ShortDelay        = 1000 * time.Millisecond
	ConservativeDelay = 2000 * time.Millisecond
)

// Decision is the retry disposition for a disconnect.
type Decision struct {
	Retry                bool
	Delay                time.Duration
	DisableAutoReconnect bool
	Bucket               Bucket
}

var buckets = map[Reason]Bucket{
	AuthExpire:            BucketFatal,
	IEIn4WayDiffers:       BucketFatal,
	GroupCipherInvalid:    BucketFatal,
	PairwiseCipherInvalid: BucketFatal,
	AKMPInvalid:           BucketFatal,
	Auth8021XFailed:       BucketFatal,
	BadCipherOrAKM:        BucketFatal,
	InvalidPMKID:          BucketFatal,
	AuthFail:              BucketFatal,
	HandshakeTimeout:      BucketFatal,

	NoAPFound:                    BucketNotFound,
	NoAPFoundWCompatibleSecurity: BucketNotFound,
	NoAPFoundInAuthmodeThreshold: BucketNotFound,
	NoAPFoundInRSSIThreshold:     BucketNotFound,

	FourWayHandshakeTimeout: BucketProtocolTimeout,
	GroupKeyUpdateTimeout:   BucketProtocolTimeout,
	SAQueryTimeout:          BucketProtocolTimeout,

	BeaconTimeout: BucketSignalLoss,
	Timeout:       BucketSignalLoss,

	Roaming:               BucketTransient,
	BSSTransitionDisassoc: BucketTransient,
	PeerInitiated:         BucketTransient,
	APInitiated:           BucketTransient,
	APTSFReset:            BucketTransient,

	AssocTooMany:       BucketOverloaded,
	NotEnoughBandwidth: BucketOverloaded,

	AssocLeave: BucketUserInitiated,
}

// BucketOf returns the bucket a reason belongs to. Unlisted reasons,
// including codes that are not defined at all, fall into BucketDefault.
func BucketOf(r Reason) Bucket {
	if b, ok := buckets[r]; ok {
		return b
	}
	return BucketDefault
}

// Classify maps a disconnect reason to a retry decision.
func Classify(r Reason) Decision {
	b := BucketOf(r)
	switch b {
	case BucketFatal:
		return Decision{Retry: false, DisableAutoReconnect: true, Bucket: b}
	case BucketUserInitiated:
		return Decision{Retry: false, Bucket: b}
	case BucketProtocolTimeout:
		return Decision{Retry: true, Delay: ImmediateDelay, Bucket: b}
	case BucketSignalLoss, BucketTransient:
		return Decision{Retry: true, Delay: ShortDelay, Bucket: b}
	case BucketNotFound, BucketOverloaded:
		return Decision{Retry: true, Delay: ConservativeDelay, Bucket: b}
	default:
		return Decision{Retry: true, Delay: ConservativeDelay, Bucket: BucketDefault}
	}
}

// IsUserInitiated reports whether r marks a deliberate local disconnect.
func IsUserInitiated(r Reason) bool {
	return BucketOf(r) == BucketUserInitiated
}
