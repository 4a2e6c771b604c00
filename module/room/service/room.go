package service

import (
	"context"

	"BKConnect/module/room/model"
	"BKConnect/tools/errs"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

// RoomService is the relational room repository. It also implements the
// dispatcher's MembershipOracle.
type RoomService struct {
	pool *pgxpool.Pool
}

func NewRoomService(pool *pgxpool.Pool) *RoomService {
	return &RoomService{pool: pool}
}

func (s *RoomService) roomExists(ctx context.Context, roomID int64) error {
	var id int64
	err := s.pool.QueryRow(ctx, `SELECT id FROM rooms WHERE id = $1`, roomID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return errs.ErrRoomNotFound.WrapMsg("room_id", roomID)
	}
	if err != nil {
		return errors.Wrap(err, "query room")
	}
	return nil
}

// GetMemberUserIDs resolves the current member list; ErrRoomNotFound when
// the room does not exist.
func (s *RoomService) GetMemberUserIDs(ctx context.Context, roomID int64) ([]string, error) {
	if err := s.roomExists(ctx, roomID); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx,
		`SELECT user_id FROM users_of_room WHERE room_id = $1 ORDER BY joined_at`, roomID)
	if err != nil {
		return nil, errors.Wrap(err, "query members")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			return nil, errors.Wrap(err, "scan member")
		}
		out = append(out, uid)
	}
	return out, rows.Err()
}

func (s *RoomService) IsMember(ctx context.Context, roomID int64, userID string) (bool, error) {
	var ok bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users_of_room WHERE room_id = $1 AND user_id = $2)`,
		roomID, userID).Scan(&ok)
	if err != nil {
		return false, errors.Wrap(err, "query membership")
	}
	return ok, nil
}

func (s *RoomService) AddUserToRoom(ctx context.Context, roomID int64, userID string) error {
	if err := s.roomExists(ctx, roomID); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users_of_room (room_id, user_id, joined_at) VALUES ($1, $2, now())
		 ON CONFLICT (room_id, user_id) DO NOTHING`, roomID, userID)
	return errors.Wrap(err, "insert member")
}

func (s *RoomService) RemoveUserFromRoom(ctx context.Context, roomID int64, userID string) error {
	if err := s.roomExists(ctx, roomID); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx,
		`DELETE FROM users_of_room WHERE room_id = $1 AND user_id = $2`, roomID, userID)
	return errors.Wrap(err, "delete member")
}

// CreateGroupRoom creates the room and seeds it with the creator plus the
// given members, all in one transaction.
func (s *RoomService) CreateGroupRoom(ctx context.Context, req model.AddGroupRoom, creatorID string) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var roomID int64
	err = tx.QueryRow(ctx,
		`INSERT INTO rooms (name, avatar, room_type, created_at) VALUES ($1, $2, $3, now()) RETURNING id`,
		req.Name, req.Avatar, model.RoomTypeGroup).Scan(&roomID)
	if err != nil {
		return 0, errors.Wrap(err, "insert room")
	}

	members := append([]string{creatorID}, req.MemberIDs...)
	for _, uid := range members {
		if _, err := tx.Exec(ctx,
			`INSERT INTO users_of_room (room_id, user_id, joined_at) VALUES ($1, $2, now())
			 ON CONFLICT (room_id, user_id) DO NOTHING`, roomID, uid); err != nil {
			return 0, errors.Wrap(err, "insert member")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, errors.Wrap(err, "commit tx")
	}
	return roomID, nil
}

func (s *RoomService) GetRoomsOfUser(ctx context.Context, userID string) ([]model.RoomSidebar, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT r.id, r.name, r.avatar, r.room_type
		   FROM rooms r JOIN users_of_room ur ON ur.room_id = r.id
		  WHERE ur.user_id = $1
		  ORDER BY r.created_at DESC`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "query rooms of user")
	}
	defer rows.Close()

	var out []model.RoomSidebar
	for rows.Next() {
		var rs model.RoomSidebar
		if err := rows.Scan(&rs.RoomID, &rs.Name, &rs.Avatar, &rs.RoomType); err != nil {
			return nil, errors.Wrap(err, "scan room")
		}
		out = append(out, rs)
	}
	return out, rows.Err()
}

// GetInformationOfRoom returns the detail view for a member. For a private
// room peerID names the other participant so the caller can attach live
// presence; peerID is empty for group rooms.
func (s *RoomService) GetInformationOfRoom(ctx context.Context, roomID int64, userID string) (model.RoomDetail, string, error) {
	var detail model.RoomDetail
	var room model.Room
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, avatar, room_type FROM rooms WHERE id = $1`, roomID).
		Scan(&room.ID, &room.Name, &room.Avatar, &room.RoomType)
	if errors.Is(err, pgx.ErrNoRows) {
		return detail, "", errs.ErrRoomNotFound.WrapMsg("room_id", roomID)
	}
	if err != nil {
		return detail, "", errors.Wrap(err, "query room")
	}

	member, err := s.IsMember(ctx, roomID, userID)
	if err != nil {
		return detail, "", err
	}
	if !member {
		return detail, "", errs.ErrNotInRoom.WrapMsg("room_id", roomID, "user_id", userID)
	}

	detail = model.RoomDetail{RoomID: room.ID, Name: room.Name, Avatar: room.Avatar, RoomType: room.RoomType}

	if room.RoomType == model.RoomTypePrivate {
		var peerID, peerName, peerAvatar string
		err = s.pool.QueryRow(ctx,
			`SELECT u.id, u.name, u.avatar
			   FROM users u JOIN users_of_room ur ON ur.user_id = u.id
			  WHERE ur.room_id = $1 AND u.id <> $2
			  LIMIT 1`, roomID, userID).Scan(&peerID, &peerName, &peerAvatar)
		if errors.Is(err, pgx.ErrNoRows) {
			return detail, "", errs.ErrUserNotFound.WrapMsg("room_id", roomID)
		}
		if err != nil {
			return detail, "", errors.Wrap(err, "query peer")
		}
		detail.Name = peerName
		detail.Avatar = peerAvatar
		return detail, peerID, nil
	}

	var total int
	err = s.pool.QueryRow(ctx,
		`SELECT count(*) FROM users_of_room WHERE room_id = $1`, roomID).Scan(&total)
	if err != nil {
		return detail, "", errors.Wrap(err, "count members")
	}
	detail.TotalMember = total
	return detail, "", nil
}
