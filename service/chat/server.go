package chat

import (
	"time"

	sec "BKConnect/tools/security"
)

type ServerConfig struct {
	GatewayID string
	JWTSecret []byte
	AuthWait  time.Duration // deadline for the first (auth) frame
}

func (c *ServerConfig) norm() {
	if c.AuthWait <= 0 {
		c.AuthWait = 30 * time.Second
	}
	if c.GatewayID == "" {
		c.GatewayID = "gw-1"
	}
}

// Server owns the websocket side of the gateway: upgrade, session auth,
// registry bookkeeping and the presence mirror.
type Server struct {
	cfg      ServerConfig
	reg      *Registry
	disp     *Dispatcher
	presence PresenceStore // may be nil when redis is unavailable
}

func NewServer(cfg ServerConfig, reg *Registry, disp *Dispatcher, presence PresenceStore) *Server {
	cfg.norm()
	return &Server{cfg: cfg, reg: reg, disp: disp, presence: presence}
}

func (s *Server) Registry() *Registry   { return s.reg }
func (s *Server) Disp() *Dispatcher     { return s.disp }
func (s *Server) GatewayID() string     { return s.cfg.GatewayID }
func (s *Server) jwtOptions() sec.Options {
	return sec.DefaultOptions(s.cfg.JWTSecret)
}
