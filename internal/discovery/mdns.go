// Package discovery advertises the running daemon over mDNS so LAN
// clients can find it without a hardcoded address, on the port its own
// front-end listener already bound.
package discovery

import (
	"fmt"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"
)

const (
	defaultService = "_nabd._tcp"
	defaultDomain  = "local."
)

// Advertise registers name on the local segment at port, carrying backend
// in a TXT record. The returned func tears the registration down.
func Advertise(name string, port int, backend string, log *zap.Logger) (func(), error) {
	if log == nil {
		log = zap.NewNop()
	}
	if name == "" {
		name = "nabd"
	}
	txt := []string{fmt.Sprintf("backend=%s", backend)}
	server, err := zeroconf.Register(name, defaultService, defaultDomain, port, txt, nil)
	if err != nil {
		return nil, fmt.Errorf("mdns register: %w", err)
	}
	log.Info("mdns advertised", zap.String("name", name), zap.String("service", defaultService), zap.Int("port", port))
	return server.Shutdown, nil
}
