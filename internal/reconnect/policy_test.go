package reconnect

import (
	"testing"
	"time"
)

func TestClassifyTable(t *testing.T) {
	tests := []struct {
		reason  Reason
		retry   bool
		delay   time.Duration
		disable bool
		bucket  Bucket
	}{
		{AuthExpire, false, 0, true, BucketFatal},
		{HandshakeTimeout, false, 0, true, BucketFatal},
		{AuthFail, false, 0, true, BucketFatal},
		{Auth8021XFailed, false, 0, true, BucketFatal},
		{AKMPInvalid, false, 0, true, BucketFatal},
		{PairwiseCipherInvalid, false, 0, true, BucketFatal},
		{GroupCipherInvalid, false, 0, true, BucketFatal},
		{BadCipherOrAKM, false, 0, true, BucketFatal},
		{InvalidPMKID, false, 0, true, BucketFatal},
		{IEIn4WayDiffers, false, 0, true, BucketFatal},

		{NoAPFound, true, 2000 * time.Millisecond, false, BucketNotFound},
		{NoAPFoundWCompatibleSecurity, true, 2000 * time.Millisecond, false, BucketNotFound},
		{NoAPFoundInAuthmodeThreshold, true, 2000 * time.Millisecond, false, BucketNotFound},
		{NoAPFoundInRSSIThreshold, true, 2000 * time.Millisecond, false, BucketNotFound},

		{FourWayHandshakeTimeout, true, 0, false, BucketProtocolTimeout},
		{GroupKeyUpdateTimeout, true, 0, false, BucketProtocolTimeout},
		{SAQueryTimeout, true, 0, false, BucketProtocolTimeout},

		{BeaconTimeout, true, 1000 * time.Millisecond, false, BucketSignalLoss},
		{Timeout, true, 1000 * time.Millisecond, false, BucketSignalLoss},

		{Roaming, true, 1000 * time.Millisecond, false, BucketTransient},
		{BSSTransitionDisassoc, true, 1000 * time.Millisecond, false, BucketTransient},
		{PeerInitiated, true, 1000 * time.Millisecond, false, BucketTransient},
		{APInitiated, true, 1000 * time.Millisecond, false, BucketTransient},
		{APTSFReset, true, 1000 * time.Millisecond, false, BucketTransient},

		{AssocTooMany, true, 2000 * time.Millisecond, false, BucketOverloaded},
		{NotEnoughBandwidth, true, 2000 * time.Millisecond, false, BucketOverloaded},

		{Unspecified, true, 2000 * time.Millisecond, false, BucketDefault},
		{AssocExpire, true, 2000 * time.Millisecond, false, BucketDefault},
		{ConnectionFail, true, 2000 * time.Millisecond, false, BucketDefault},
		{MICFailure, true, 2000 * time.Millisecond, false, BucketDefault},

		{AssocLeave, false, 0, false, BucketUserInitiated},
	}

	for _, tt := range tests {
		t.Run(tt.reason.String(), func(t *testing.T) {
			d := Classify(tt.reason)
			if d.Retry != tt.retry {
				t.Errorf("Expected Retry=%v, got %v", tt.retry, d.Retry)
			}
			if d.Delay != tt.delay {
				t.Errorf("Expected Delay=%v, got %v", tt.delay, d.Delay)
			}
			if d.DisableAutoReconnect != tt.disable {
				t.Errorf("Expected DisableAutoReconnect=%v, got %v", tt.disable, d.DisableAutoReconnect)
			}
			if d.Bucket != tt.bucket {
				t.Errorf("Expected bucket %v, got %v", tt.bucket, d.Bucket)
			}
		})
	}
}

func TestClassifyTotality(t *testing.T) {
	for _, r := range Reasons() {
		d := Classify(r)
		if d.Bucket != BucketOf(r) {
			t.Errorf("%#v: decision bucket %v disagrees with BucketOf %v", r, d.Bucket, BucketOf(r))
		}
		if d.Retry && d.DisableAutoReconnect {
			t.Errorf("%#v: a retry decision must not disable auto-reconnect", r)
		}
	}

	for _, r := range []Reason{0, -1, 40, 99, 199, 213, 1 << 20} {
		d := Classify(r)
		if d.Bucket != BucketDefault || !d.Retry || d.Delay != ConservativeDelay {
			t.Errorf("Unrecognized reason %d: expected default retry after %v, got %+v", r, ConservativeDelay, d)
		}
	}
}

func TestReasonString(t *testing.T) {
	tests := []struct {
		reason Reason
		want   string
	}{
		{BeaconTimeout, "Beacon timeout"},
		{AuthExpire, "Authentication expired"},
		{AssocLeave, "Deassociated due to leaving"},
		{NoAPFoundInRSSIThreshold, "No AP found in RSSI threshold"},
		{Reason(1000), "Unknown reason"},
	}
	for _, tt := range tests {
		if got := tt.reason.String(); got != tt.want {
			t.Errorf("Reason(%d).String() = %q, want %q", int(tt.reason), got, tt.want)
		}
	}
}

func TestReasonsSortedAndKnown(t *testing.T) {
	rs := Reasons()
	if len(rs) != len(reasonText) {
		t.Fatalf("Expected %d reasons, got %d", len(reasonText), len(rs))
	}
	for i := 1; i < len(rs); i++ {
		if rs[i-1] >= rs[i] {
			t.Errorf("Reasons not ascending at %d: %d >= %d", i, rs[i-1], rs[i])
		}
	}
}

func TestIsUserInitiated(t *testing.T) {
	if !IsUserInitiated(AssocLeave) {
		t.Error("Expected AssocLeave to be user initiated")
	}
	if IsUserInitiated(AuthLeave) || IsUserInitiated(BeaconTimeout) {
		t.Error("Only AssocLeave is user initiated")
	}
}
