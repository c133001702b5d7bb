package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/pulsefit/pulsefit-server/apperr"
	"github.com/pulsefit/pulsefit-server/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore implements Store on a GORM database.
type GormStore struct {
	db *gorm.DB
	// rowLock enables SELECT ... FOR UPDATE on pending-request reads. Under
	// MySQL REPEATABLE READ two crossed SendRequest transactions would
	// otherwise both see no reciprocal row and both insert; the gap locks
	// taken by the locking read serialize them. SQLite cannot parse locking
	// clauses and serializes writers on its own, so it skips the clause.
	rowLock bool
}

// NewGorm wraps db in the Store contract.
func NewGorm(db *gorm.DB) *GormStore {
	return &GormStore{db: db, rowLock: db.Dialector.Name() != "sqlite"}
}

func (s *GormStore) Atomic(ctx context.Context, fn func(Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{db: tx, rowLock: s.rowLock})
	})
}

type gormTx struct {
	db      *gorm.DB
	rowLock bool
}

// readErr maps a gorm read result: absent records are (nil, nil), anything
// else is a retryable store failure.
func readErr(op string, err error) error {
	if err == nil || errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return apperr.Wrap(apperr.KindUnavailable, op, err)
}

func writeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return apperr.Wrap(apperr.KindUnavailable, op, err)
}

// isUniqueViolation detects duplicate-key errors from common database drivers.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") ||
		strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "already exists")
}

// ---- Friendship ----

func (t *gormTx) ReadEdge(ownerID, friendID int64) (*model.FriendEdge, error) {
	var edge model.FriendEdge
	err := t.db.Where("owner_id = ? AND friend_id = ?", ownerID, friendID).First(&edge).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, readErr("read edge", err)
	}
	return &edge, nil
}

func (t *gormTx) WriteEdgePair(a, b int64) error {
	now := time.Now()
	pair := []model.FriendEdge{
		{OwnerID: a, FriendID: b, RingsShare: true, CreatedAt: now},
		{OwnerID: b, FriendID: a, RingsShare: true, CreatedAt: now},
	}
	if err := t.db.Create(&pair).Error; err != nil {
		if isUniqueViolation(err) {
			return apperr.Wrap(apperr.KindConflict, "edge pair exists", err)
		}
		return writeErr("write edge pair", err)
	}
	return nil
}

func (t *gormTx) DeleteEdgePair(a, b int64) error {
	err := t.db.Where("(owner_id = ? AND friend_id = ?) OR (owner_id = ? AND friend_id = ?)",
		a, b, b, a).Delete(&model.FriendEdge{}).Error
	return writeErr("delete edge pair", err)
}

func (t *gormTx) SetEdgeShare(ownerID, friendID int64, share bool) error {
	res := t.db.Model(&model.FriendEdge{}).
		Where("owner_id = ? AND friend_id = ?", ownerID, friendID).
		Update("rings_share", share)
	if res.Error != nil {
		return writeErr("set edge share", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.New(apperr.KindNotFound, "friendship not found")
	}
	return nil
}

func (t *gormTx) ReadPendingRequest(fromID, toID int64) (*model.FriendRequest, error) {
	q := t.db
	if t.rowLock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var req model.FriendRequest
	err := q.Where("from_id = ? AND to_id = ? AND status = ?",
		fromID, toID, model.RequestPending).First(&req).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, readErr("read pending request", err)
	}
	return &req, nil
}

func (t *gormTx) WriteRequest(req *model.FriendRequest) error {
	if req.ID == 0 {
		return writeErr("create request", t.db.Create(req).Error)
	}
	return writeErr("update request", t.db.Save(req).Error)
}

func (t *gormTx) ReadBlock(blockerID, blockedID int64) (*model.BlockedEdge, error) {
	var block model.BlockedEdge
	err := t.db.Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).First(&block).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, readErr("read block", err)
	}
	return &block, nil
}

func (t *gormTx) WriteBlock(blockerID, blockedID int64) error {
	err := t.db.Create(&model.BlockedEdge{BlockerID: blockerID, BlockedID: blockedID}).Error
	if err != nil && isUniqueViolation(err) {
		// Re-blocking is a no-op.
		return nil
	}
	return writeErr("write block", err)
}

func (t *gormTx) DeleteBlock(blockerID, blockedID int64) error {
	err := t.db.Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
		Delete(&model.BlockedEdge{}).Error
	return writeErr("delete block", err)
}

// ---- Clan ----

func (t *gormTx) ReadClan(clanID int64) (*model.Clan, error) {
	var clan model.Clan
	err := t.db.First(&clan, clanID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, readErr("read clan", err)
	}
	return &clan, nil
}

func (t *gormTx) WriteClan(clan *model.Clan) error {
	if clan.ID == 0 {
		if err := t.db.Create(clan).Error; err != nil {
			if isUniqueViolation(err) {
				return apperr.Wrap(apperr.KindConflict, "clan name taken", err)
			}
			return writeErr("create clan", err)
		}
		return nil
	}
	return writeErr("update clan", t.db.Save(clan).Error)
}

func (t *gormTx) ReadMember(clanID, userID int64) (*model.ClanMember, error) {
	var m model.ClanMember
	err := t.db.Where("clan_id = ? AND user_id = ?", clanID, userID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, readErr("read member", err)
	}
	return &m, nil
}

func (t *gormTx) WriteMember(m *model.ClanMember) error {
	err := t.db.Save(m).Error
	return writeErr("write member", err)
}

func (t *gormTx) DeleteMember(clanID, userID int64) error {
	err := t.db.Where("clan_id = ? AND user_id = ?", clanID, userID).
		Delete(&model.ClanMember{}).Error
	return writeErr("delete member", err)
}

func (t *gormTx) ReadPendingInvite(clanID, toID int64) (*model.ClanInvite, error) {
	var inv model.ClanInvite
	err := t.db.Where("clan_id = ? AND to_id = ? AND status = ?",
		clanID, toID, model.InvitePending).First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, readErr("read pending invite", err)
	}
	return &inv, nil
}

func (t *gormTx) WriteInvite(inv *model.ClanInvite) error {
	if inv.ID == 0 {
		return writeErr("create invite", t.db.Create(inv).Error)
	}
	return writeErr("update invite", t.db.Save(inv).Error)
}

func (t *gormTx) TransferOwnership(clanID, fromID, toID int64) error {
	res := t.db.Model(&model.ClanMember{}).
		Where("clan_id = ? AND user_id = ? AND role = ?", clanID, fromID, model.RoleOwner).
		Update("role", model.RoleAdmin)
	if res.Error != nil {
		return writeErr("demote owner", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.New(apperr.KindNotFound, "owner member not found")
	}
	res = t.db.Model(&model.ClanMember{}).
		Where("clan_id = ? AND user_id = ?", clanID, toID).
		Update("role", model.RoleOwner)
	if res.Error != nil {
		return writeErr("promote owner", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.New(apperr.KindNotFound, "target member not found")
	}
	err := t.db.Model(&model.Clan{}).Where("id = ?", clanID).
		Update("owner_id", toID).Error
	return writeErr("repoint clan owner", err)
}
