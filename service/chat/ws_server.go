package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"BKConnect/logger"
	"BKConnect/tools/decode"
	"BKConnect/tools/ids"
	"BKConnect/tools/safe"
	sec "BKConnect/tools/security"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// inbound control frames; the data direction of this channel is server→client
type clientFrame struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
}

type authPayload struct {
	Token string `json:"token"`
}

const (
	frameAuth = "auth"
	framePing = "ping"
)

type serverFrame struct {
	Type      string `json:"type"`
	ConnID    string `json:"conn_id,omitempty"`
	GatewayID string `json:"gateway_id,omitempty"`
	Ts        int64  `json:"ts"`
}

func buildAck(typ, connID, gatewayID string) []byte {
	b, _ := json.Marshal(serverFrame{Type: typ, ConnID: connID, GatewayID: gatewayID, Ts: time.Now().UnixMilli()})
	return b
}

// HandleWS upgrades the request and runs the session: the peer must send an
// auth frame first, then the connection becomes a pure push channel (plus
// ping frames to keep presence fresh).
func (s *Server) HandleWS(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Infof("[HandleWS] upgrade websocket error: %v", err)
		return
	}

	connID := ids.GenerateString()

	userID, err := s.awaitAuth(ws)
	if err != nil {
		logger.Infof("[HandleWS] auth failed conn=%s err=%v", connID, err)
		_ = ws.Close()
		return
	}

	cli := NewClient(connID, userID, ws)
	safe.Go(cli.WritePump)

	s.reg.Register(userID, cli)
	s.markOnline(userID)
	_ = cli.Push(buildAck("auth_ack", connID, s.cfg.GatewayID))
	logger.Infof("[HandleWS] connected user=%s conn=%s", userID, connID)

	s.readLoop(cli)

	// exit: compare-and-remove so a newer connection for the same user
	// is never evicted by this handler's teardown
	s.reg.Unregister(userID, cli)
	_ = cli.Close()
	s.markOffline(userID)
	logger.Infof("[HandleWS] disconnected user=%s conn=%s", userID, connID)
}

// awaitAuth reads the first frame, which must carry a valid token.
func (s *Server) awaitAuth(ws *websocket.Conn) (string, error) {
	_ = ws.SetReadDeadline(time.Now().Add(s.cfg.AuthWait))
	_, raw, err := ws.ReadMessage()
	if err != nil {
		return "", err
	}

	var f clientFrame
	if err := json.Unmarshal(raw, &f); err != nil {
		return "", err
	}
	if f.Type != frameAuth {
		return "", errors.New("first frame must be auth")
	}
	p, err := decode.DecodeMap[authPayload](f.Payload)
	if err != nil {
		return "", err
	}
	return sec.Verify(s.jwtOptions(), p.Token)
}

func (s *Server) readLoop(cli *Client) {
	ws := cli.ws
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		_ = ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, rerr := ws.ReadMessage()
		if rerr != nil {
			if websocket.IsCloseError(rerr,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Infof("[WS] peer closed user=%s conn=%s", cli.UserID, cli.ConnID)
			} else if ne, ok := rerr.(net.Error); ok && ne.Timeout() {
				logger.Infof("[WS] read timeout user=%s conn=%s err=%v", cli.UserID, cli.ConnID, rerr)
			} else {
				logger.Infof("[WS] read err user=%s conn=%s err=%v", cli.UserID, cli.ConnID, rerr)
			}
			return
		}

		var f clientFrame
		if perr := json.Unmarshal(raw, &f); perr != nil {
			sample := raw
			if len(sample) > 256 {
				sample = sample[:256]
			}
			logger.Infof("[WS] bad frame user=%s err=%v sample=%q", cli.UserID, perr, sample)
			continue
		}

		switch f.Type {
		case framePing:
			_ = ws.SetReadDeadline(time.Now().Add(pongWait))
			_ = cli.Push(buildAck("pong", cli.ConnID, s.cfg.GatewayID))
			s.markOnline(cli.UserID) // renew the presence TTL
		default:
			// clients do not publish over this channel
		}
	}
}

func (s *Server) markOnline(userID string) {
	if s.presence == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.presence.Online(ctx, userID, s.cfg.GatewayID); err != nil {
		logger.Infof("[HandleWS] presence online failed user=%s err=%v", userID, err)
	}
}

func (s *Server) markOffline(userID string) {
	if s.presence == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.presence.Offline(ctx, userID); err != nil {
		logger.Infof("[HandleWS] presence offline failed user=%s err=%v", userID, err)
	}
}
