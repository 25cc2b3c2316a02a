package fabric

import (
	"fmt"
	"net/netip"
	"regexp"
	"strings"

	"tforge/config"
)

// UnspecifiedRouter substitutes for an empty router value. macOS accepts
// the unspecified address as "no router" on point-to-point segments.
const UnspecifiedRouter = "0.0.0.0"

// Remote commands are assembled only from these fixed templates plus
// validated, quoted values. Raw config strings never reach a remote shell.
const (
	listServicesCommand   = "networksetup -listallnetworkservices"
	productVersionCommand = "sw_vers -productVersion"
)

// AssignCommand builds the networksetup invocation that assigns address to
// the service. Every interpolated value is validated first; the service
// name is additionally shell-quoted because real names contain spaces.
func AssignCommand(mode config.AddressMode, service, address string, d config.IPv4Defaults) (string, error) {
	if err := validateServiceName(service); err != nil {
		return "", err
	}
	addr, err := ipv4Field("address", address)
	if err != nil {
		return "", err
	}
	mask, err := ipv4Field("netmask", d.Netmask)
	if err != nil {
		return "", err
	}
	routerValue := d.Router
	if routerValue == "" {
		routerValue = UnspecifiedRouter
	}
	router, err := ipv4Field("router", routerValue)
	if err != nil {
		return "", err
	}

	switch mode {
	case config.ModeManual:
		return fmt.Sprintf("networksetup -setmanual %s %s %s %s", shellQuote(service), addr, mask, router), nil
	case config.ModeDHCPManualAddress:
		return fmt.Sprintf("networksetup -setmanualwithdhcprouter %s %s %s %s", shellQuote(service), addr, mask, router), nil
	default:
		return "", fmt.Errorf("unsupported fabricnet ipv4_mode %q", mode)
	}
}

func getInfoCommand(service string) (string, error) {
	if err := validateServiceName(service); err != nil {
		return "", err
	}
	return "networksetup -getinfo " + shellQuote(service), nil
}

// Real macOS service names are short phrases: "Thunderbolt Bridge",
// "USB 10/100/1000 LAN", "Ethernet Adapter (en5)". Anything outside this
// shape is refused before it can reach a remote shell.
var serviceNameRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 ./()-]*$`)

func validateServiceName(name string) error {
	if !serviceNameRe.MatchString(name) {
		return fmt.Errorf("network service name %q contains unsupported characters", name)
	}
	return nil
}

// ipv4Field insists value parses as a literal IPv4 address, which also
// rules out shell metacharacters. The raw string is returned unchanged so
// the later read-back comparison sees exactly what was configured.
func ipv4Field(field, value string) (string, error) {
	addr, err := netip.ParseAddr(value)
	if err != nil || !addr.Is4() {
		return "", fmt.Errorf("fabricnet %s %q is not an IPv4 address", field, value)
	}
	return value, nil
}

// shellQuote wraps s in single quotes for the remote shell, escaping any
// embedded single quote.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}
