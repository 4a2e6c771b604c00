package chat

import (
	"context"

	"BKConnect/logger"
)

// MembershipOracle answers room membership questions. Implemented by the
// room repository; a missing room surfaces errs.ErrRoomNotFound.
type MembershipOracle interface {
	GetMemberUserIDs(ctx context.Context, roomID int64) ([]string, error)
	IsMember(ctx context.Context, roomID int64, userID string) (bool, error)
}

// PresenceStore mirrors who is online on which gateway node. Backed by
// redis; optional.
type PresenceStore interface {
	Online(ctx context.Context, userID, gatewayID string) error
	Offline(ctx context.Context, userID string) error
	Lookup(ctx context.Context, userID string) (gatewayID string, online bool, err error)
}

// Relay forwards an already-marshaled envelope to a user connected on
// another gateway node. Fire-and-forget, like local delivery.
type Relay interface {
	Deliver(ctx context.Context, gatewayID, userID string, payload []byte) error
}

// BroadcastResult reports how a room fan-out went. Delivered counts local
// pushes; Relayed counts envelopes handed to another gateway. Offline
// members simply never receive the envelope.
type BroadcastResult struct {
	Attempted int `json:"attempted"`
	Delivered int `json:"delivered"`
	Relayed   int `json:"relayed"`
}

// Dispatcher decides who receives an envelope and pushes it through the
// registry. It assumes the triggering domain mutation already succeeded;
// delivery is best-effort with no retry and no persistence.
type Dispatcher struct {
	reg   *Registry
	rooms MembershipOracle

	presence  PresenceStore
	relay     Relay
	gatewayID string
}

func NewDispatcher(reg *Registry, rooms MembershipOracle) *Dispatcher {
	return &Dispatcher{reg: reg, rooms: rooms}
}

// EnableRelay turns on cross-gateway forwarding via the presence mirror.
func (d *Dispatcher) EnableRelay(presence PresenceStore, relay Relay, gatewayID string) {
	d.presence = presence
	d.relay = relay
	d.gatewayID = gatewayID
}

func (d *Dispatcher) Registry() *Registry { return d.reg }

// SendDirect pushes env to a single recipient. delivered=false means the
// user holds no local channel; that is the expected offline case, never an
// error.
func (d *Dispatcher) SendDirect(ctx context.Context, env Envelope, userID string) bool {
	data := env.Marshal()
	if d.reg.Send(userID, data) {
		return true
	}
	d.relayRemote(ctx, userID, data)
	return false
}

// SendRoomBroadcast resolves the member list once (a point-in-time read),
// drops excludeUserID if given, and delivers to each remaining member
// independently: one offline or broken member never aborts the rest.
func (d *Dispatcher) SendRoomBroadcast(ctx context.Context, env Envelope, roomID int64, excludeUserID string) (BroadcastResult, error) {
	members, err := d.rooms.GetMemberUserIDs(ctx, roomID)
	if err != nil {
		return BroadcastResult{}, err
	}

	data := env.Marshal()
	var res BroadcastResult
	for _, uid := range members {
		if uid == excludeUserID {
			continue
		}
		res.Attempted++
		if d.reg.Send(uid, data) {
			res.Delivered++
			continue
		}
		if d.relayRemote(ctx, uid, data) {
			res.Relayed++
		}
	}

	logger.Infof("[Dispatch] room=%d attempted=%d delivered=%d relayed=%d exclude=%s",
		roomID, res.Attempted, res.Delivered, res.Relayed, excludeUserID)
	return res, nil
}

// relayRemote hands the payload to the gateway currently holding userID, if
// the presence mirror knows one. Failures are swallowed: the durable channel
// for missed pushes is the persisted notification, not this nudge.
func (d *Dispatcher) relayRemote(ctx context.Context, userID string, data []byte) bool {
	if d.presence == nil || d.relay == nil {
		return false
	}
	gw, online, err := d.presence.Lookup(ctx, userID)
	if err != nil {
		logger.Infof("[Dispatch] presence lookup failed user=%s err=%v", userID, err)
		return false
	}
	if !online || gw == "" || gw == d.gatewayID {
		return false
	}
	if err := d.relay.Deliver(ctx, gw, userID, data); err != nil {
		logger.Infof("[Dispatch] relay failed user=%s gw=%s err=%v", userID, gw, err)
		return false
	}
	return true
}
