package reconnect

import "fmt"

// Reason is a disconnect reason code reported by the radio. Values 1-68
// follow IEEE 802.11; values from 200 up are raised by the driver itself.
type Reason int

// IEEE 802.11 reason codes.
const (
	Unspecified                 Reason = 1
	AuthExpire                  Reason = 2
	AuthLeave                   Reason = 3
	AssocExpire                 Reason = 4 // disassociated due to inactivity
	AssocTooMany                Reason = 5
	NotAuthed                   Reason = 6
	NotAssoced                  Reason = 7
	AssocLeave                  Reason = 8
	AssocNotAuthed              Reason = 9
	DisassocPwrcapBad           Reason = 10
	DisassocSupchanBad          Reason = 11
	BSSTransitionDisassoc       Reason = 12
	IEInvalid                   Reason = 13
	MICFailure                  Reason = 14
	FourWayHandshakeTimeout     Reason = 15
	GroupKeyUpdateTimeout       Reason = 16
	IEIn4WayDiffers             Reason = 17
	GroupCipherInvalid          Reason = 18
	PairwiseCipherInvalid       Reason = 19
	AKMPInvalid                 Reason = 20
	UnsuppRSNIEVersion          Reason = 21
	InvalidRSNIECap             Reason = 22
	Auth8021XFailed             Reason = 23
	CipherSuiteRejected         Reason = 24
	TDLSPeerUnreachable         Reason = 25
	TDLSUnspecified             Reason = 26
	SSPRequestedDisassoc        Reason = 27
	NoSSPRoamingAgreement       Reason = 28
	BadCipherOrAKM              Reason = 29
	NotAuthorizedThisLocation   Reason = 30
	ServiceChangePrecludesTS    Reason = 31
	UnspecifiedQoS              Reason = 32
	NotEnoughBandwidth          Reason = 33
	MissingACKs                 Reason = 34
	ExceededTXOP                Reason = 35
	StaLeaving                  Reason = 36
	EndBA                       Reason = 37
	UnknownBA                   Reason = 38
	Timeout                     Reason = 39
	PeerInitiated               Reason = 46
	APInitiated                 Reason = 47
	InvalidFTActionFrameCount   Reason = 48
	InvalidPMKID                Reason = 49
	InvalidMDE                  Reason = 50
	InvalidFTE                  Reason = 51
	TransmissionLinkEstFailed   Reason = 67
	AlternativeChannelOccupied  Reason = 68
)

// Driver-raised reason codes.
const (
	BeaconTimeout                Reason = 200
	NoAPFound                    Reason = 201
	AuthFail                     Reason = 202
	AssocFail                    Reason = 203
	HandshakeTimeout             Reason = 204
	ConnectionFail               Reason = 205
	APTSFReset                   Reason = 206
	Roaming                      Reason = 207
	AssocComebackTimeTooLong     Reason = 208
	SAQueryTimeout               Reason = 209
	NoAPFoundWCompatibleSecurity Reason = 210
	NoAPFoundInAuthmodeThreshold Reason = 211
	NoAPFoundInRSSIThreshold     Reason = 212
)

var reasonText = map[Reason]string{
	Unspecified:                  "Unspecified reason",
	AuthExpire:                   "Authentication expired",
	AuthLeave:                    "Deauthentication due to leaving",
	AssocExpire:                  "Disassociated due to inactivity",
	AssocTooMany:                 "Too many associated stations",
	NotAuthed:                    "Class 2 frame received from nonauthenticated STA",
	NotAssoced:                   "Class 3 frame received from nonassociated STA",
	AssocLeave:                   "Deassociated due to leaving",
	AssocNotAuthed:               "Association but not authenticated",
	DisassocPwrcapBad:            "Disassociated due to poor power capability",
	DisassocSupchanBad:           "Disassociated due to unsupported channel",
	BSSTransitionDisassoc:        "Disassociated due to BSS transition",
	IEInvalid:                    "Invalid Information Element (IE)",
	MICFailure:                   "MIC failure",
	FourWayHandshakeTimeout:      "4-way handshake timeout",
	GroupKeyUpdateTimeout:        "Group key update timeout",
	IEIn4WayDiffers:              "IE differs in 4-way handshake",
	GroupCipherInvalid:           "Invalid group cipher",
	PairwiseCipherInvalid:        "Invalid pairwise cipher",
	AKMPInvalid:                  "Invalid AKMP",
	UnsuppRSNIEVersion:           "Unsupported RSN IE version",
	InvalidRSNIECap:              "Invalid RSN IE capabilities",
	Auth8021XFailed:              "802.1X authentication failed",
	CipherSuiteRejected:          "Cipher suite rejected",
	TDLSPeerUnreachable:          "TDLS peer unreachable",
	TDLSUnspecified:              "TDLS unspecified",
	SSPRequestedDisassoc:         "SSP requested disassociation",
	NoSSPRoamingAgreement:        "No SSP roaming agreement",
	BadCipherOrAKM:               "Bad cipher or AKM",
	NotAuthorizedThisLocation:    "Not authorized in this location",
	ServiceChangePrecludesTS:     "Service change precludes TS",
	UnspecifiedQoS:               "Unspecified QoS reason",
	NotEnoughBandwidth:           "Not enough bandwidth",
	MissingACKs:                  "Missing ACKs",
	ExceededTXOP:                 "Exceeded TXOP",
	StaLeaving:                   "Station leaving",
	EndBA:                        "End of Block Ack (BA)",
	UnknownBA:                    "Unknown Block Ack (BA)",
	Timeout:                      "Timeout",
	PeerInitiated:                "Peer initiated disassociation",
	APInitiated:                  "AP initiated disassociation",
	InvalidFTActionFrameCount:    "Invalid FT action frame count",
	InvalidPMKID:                 "Invalid PMKID",
	InvalidMDE:                   "Invalid MDE",
	InvalidFTE:                   "Invalid FTE",
	TransmissionLinkEstFailed:    "Transmission link establishment failed",
	AlternativeChannelOccupied:   "Alternative channel occupied",
	BeaconTimeout:                "Beacon timeout",
	NoAPFound:                    "No AP found",
	AuthFail:                     "Authentication failed",
	AssocFail:                    "Association failed",
	HandshakeTimeout:             "Handshake timeout",
	ConnectionFail:               "Connection failed",
	APTSFReset:                   "AP TSF reset",
	Roaming:                      "Roaming",
	AssocComebackTimeTooLong:     "Association comeback time too long",
	SAQueryTimeout:               "SA query timeout",
	NoAPFoundWCompatibleSecurity: "No AP found with compatible security",
	NoAPFoundInAuthmodeThreshold: "No AP found in auth mode threshold",
	NoAPFoundInRSSIThreshold:     "No AP found in RSSI threshold",
}

// String returns the human-readable description of the reason.
func (r Reason) String() string {
	if text, ok := reasonText[r]; ok {
		return text
	}
	return "Unknown reason"
}

// Known reports whether r is a defined reason code.
func (r Reason) Known() bool {
	_, ok := reasonText[r]
	return ok
}

// GoString makes %#v output readable in test failures.
func (r Reason) GoString() string {
	return fmt.Sprintf("reconnect.Reason(%d %q)", int(r), r.String())
}

// Reasons returns every defined reason code in ascending order.
func Reasons() []Reason {
	out := make([]Reason, 0, len(reasonText))
	for r := Reason(0); r <= NoAPFoundInRSSIThreshold; r++ {
		if r.Known() {
			out = append(out, r)
		}
	}
	return out
}
