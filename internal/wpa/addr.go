package wpa

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"net"
	"net/netip"
	"os"
	"os/exec"
	"strings"
)

// Runner executes an external command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return out, nil
}

// staticAddressCommands returns the ip(8) invocations that assign info to
// ifname and route the default gateway through it.
func staticAddressCommands(ifname string, ip, gateway, netmask netip.Addr) ([][]string, error) {
	if !ip.Is4() || !netmask.Is4() {
		return nil, fmt.Errorf("static address must be IPv4")
	}
	mask := netmask.As4()
	ones, bits := net.IPMask(mask[:]).Size()
	if bits == 0 {
		return nil, fmt.Errorf("invalid netmask %s", netmask)
	}

	cmds := [][]string{
		{"ip", "addr", "flush", "dev", ifname},
		{"ip", "addr", "add", fmt.Sprintf("%s/%d", ip, ones), "dev", ifname},
	}
	if gateway.IsValid() && !gateway.IsUnspecified() {
		cmds = append(cmds, []string{"ip", "route", "replace", "default", "via", gateway.String(), "dev", ifname})
	}
	return cmds, nil
}

// lease is the IPv4 configuration currently present on an interface.
type lease struct {
	IP      netip.Addr
	Netmask netip.Addr
	Gateway netip.Addr
}

// interfaceLease reads the first IPv4 address of ifname and its default
// gateway. ok is false while no address is assigned.
func interfaceLease(ifname string) (lease, bool, error) {
	ifi, err := net.InterfaceByName(ifname)
	if err != nil {
		return lease{}, false, fmt.Errorf("could not find interface %s: %w", ifname, err)
	}
	addrs, err := ifi.Addrs()
	if err != nil {
		return lease{}, false, fmt.Errorf("could not list addresses of %s: %w", ifname, err)
	}

	for _, a := range addrs {
		ipnet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		ip4 := ipnet.IP.To4()
		if ip4 == nil || ip4.IsLinkLocalUnicast() {
			continue
		}
		mask := ipnet.Mask
		if len(mask) == net.IPv6len {
			mask = mask[12:]
		}
		l := lease{
			IP:      netip.AddrFrom4([4]byte(ip4)),
			Netmask: netip.AddrFrom4([4]byte(mask)),
		}
		if routes, err := os.ReadFile("/proc/net/route"); err == nil {
			l.Gateway, _ = defaultGateway(string(routes), ifname)
		}
		return l, true, nil
	}
	return lease{}, false, nil
}

// defaultGateway finds the default route of ifname in the contents of
// /proc/net/route.
func defaultGateway(table, ifname string) (netip.Addr, bool) {
	sc := bufio.NewScanner(strings.NewReader(table))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 3 || fields[0] != ifname || fields[1] != "00000000" {
			continue
		}
		raw, err := hex.DecodeString(fields[2])
		if err != nil || len(raw) != 4 {
			continue
		}
		// The kernel prints the address in host byte order.
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], binary.BigEndian.Uint32(raw))
		return netip.AddrFrom4(b), true
	}
	return netip.Addr{}, false
}

// parseStationDump extracts client MAC addresses from `iw dev X station dump`.
func parseStationDump(out string) []string {
	var macs []string
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) >= 2 && fields[0] == "Station" {
			if _, err := net.ParseMAC(fields[1]); err == nil {
				macs = append(macs, fields[1])
			}
		}
	}
	return macs
}
