package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"sudooom.fedi.sync/internal/model"
)

// pgForeignKeyViolation 外键约束错误码
const pgForeignKeyViolation = "23503"

// PostgresStore 基于 PostgreSQL 的本地存储
type PostgresStore struct {
	db       *pgxpool.Pool
	notifier *Notifier
}

// NewPostgresStore 创建 PostgreSQL 存储
func NewPostgresStore(db *pgxpool.Pool, notifier *Notifier) *PostgresStore {
	if notifier == nil {
		notifier = NewNotifier()
	}
	return &PostgresStore{db: db, notifier: notifier}
}

// Migrate 创建表结构
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schema)
	return err
}

// Notifier 返回通知器
func (s *PostgresStore) Notifier() *Notifier {
	return s.notifier
}

// pgTx PostgreSQL 写事务
type pgTx struct {
	tx      pgx.Tx
	touched map[model.AccountID]bool
}

// DeleteConversationsForAccount 删除账号的全部会话行
func (t *pgTx) DeleteConversationsForAccount(ctx context.Context, accountID model.AccountID) error {
	t.touched[accountID] = true
	_, err := t.tx.Exec(ctx, `DELETE FROM conversations WHERE account_id = $1`, accountID)
	return err
}

// UpsertConversations 批量写入会话行并合并覆盖层默认值
func (t *pgTx) UpsertConversations(ctx context.Context, records []model.ConversationRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, rec := range records {
		accounts, err := json.Marshal(rec.Accounts)
		if err != nil {
			return fmt.Errorf("marshal accounts: %w", err)
		}
		lastStatus, err := json.Marshal(rec.LastStatus)
		if err != nil {
			return fmt.Errorf("marshal last status: %w", err)
		}

		batch.Queue(`
			INSERT INTO conversations (account_id, id, sort_order, accounts, unread, last_status, is_conversation_starter)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (account_id, id) DO UPDATE SET
				sort_order = EXCLUDED.sort_order,
				accounts = EXCLUDED.accounts,
				unread = EXCLUDED.unread,
				last_status = EXCLUDED.last_status,
				is_conversation_starter = EXCLUDED.is_conversation_starter
		`, rec.AccountID, rec.ID, rec.SortOrder, accounts, rec.Unread, lastStatus, rec.IsConversationStarter)

		// 已保存的覆盖层字段优先
		vd := rec.ViewData
		batch.Queue(`
			INSERT INTO status_view_data (account_id, server_id, expanded, content_showing, content_collapsed, translation_state)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (account_id, server_id) DO UPDATE SET
				expanded = COALESCE(status_view_data.expanded, EXCLUDED.expanded),
				content_showing = COALESCE(status_view_data.content_showing, EXCLUDED.content_showing),
				content_collapsed = COALESCE(status_view_data.content_collapsed, EXCLUDED.content_collapsed),
				translation_state = COALESCE(status_view_data.translation_state, EXCLUDED.translation_state)
		`, rec.AccountID, rec.LastStatus.ID, vd.Expanded, vd.ContentShowing, vd.ContentCollapsed, nullableState(vd.TranslationState))

		t.touched[rec.AccountID] = true
	}

	br := t.tx.SendBatch(ctx, batch)
	for range batch.Len() {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return translateError(err)
		}
	}
	return br.Close()
}

// RunInTx 在单个数据库事务内执行 fn
func (s *PostgresStore) RunInTx(ctx context.Context, fn func(tx Tx) error) error {
	touched, err := s.inTx(ctx, func(t *pgTx) error {
		return fn(t)
	})
	if err != nil {
		return err
	}
	s.notify(touched)
	return nil
}

func (s *PostgresStore) inTx(ctx context.Context, fn func(t *pgTx) error) (map[model.AccountID]bool, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	t := &pgTx{tx: tx, touched: make(map[model.AccountID]bool)}
	if err := fn(t); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return t.touched, nil
}

func (s *PostgresStore) notify(touched map[model.AccountID]bool) {
	ids := make([]model.AccountID, 0, len(touched))
	for id := range touched {
		ids = append(ids, id)
	}
	s.notifier.Notify(ids...)
}

// exec 执行单条写语句，有行变更时发出通知
func (s *PostgresStore) exec(ctx context.Context, accountID model.AccountID, query string, args ...any) (int64, error) {
	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, translateError(err)
	}
	if tag.RowsAffected() > 0 {
		s.notifier.Notify(accountID)
	}
	return tag.RowsAffected(), nil
}

const selectConversation = `
	SELECT c.account_id, c.id, c.sort_order, c.accounts, c.unread, c.last_status, c.is_conversation_starter,
		v.expanded, v.content_showing, v.content_collapsed, v.translation_state
	FROM conversations c
	LEFT JOIN status_view_data v ON v.account_id = c.account_id AND v.server_id = c.last_status->>'id'
`

func scanConversation(row pgx.Row) (*model.ConversationRecord, error) {
	var (
		rec   model.ConversationRecord
		state *string
	)
	err := row.Scan(
		&rec.AccountID,
		&rec.ID,
		&rec.SortOrder,
		&rec.Accounts,
		&rec.Unread,
		&rec.LastStatus,
		&rec.IsConversationStarter,
		&rec.ViewData.Expanded,
		&rec.ViewData.ContentShowing,
		&rec.ViewData.ContentCollapsed,
		&state,
	)
	if err != nil {
		return nil, err
	}
	rec.ViewData.AccountID = rec.AccountID
	rec.ViewData.ServerID = rec.LastStatus.ID
	if state != nil {
		rec.ViewData.TranslationState = model.TranslationState(*state)
	}
	return &rec, nil
}

// querier 连接池与事务共用的查询接口
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Conversations 按 sort_order 升序读取
func (s *PostgresStore) Conversations(ctx context.Context, accountID model.AccountID, offset, limit int) ([]model.ConversationRecord, error) {
	return queryConversations(ctx, s.db, accountID, offset, limit)
}

// CountConversations 统计账号的会话数
func (s *PostgresStore) CountConversations(ctx context.Context, accountID model.AccountID) (int, error) {
	return countConversations(ctx, s.db, accountID)
}

// ConversationPage 在一个可重复读的只读事务中读取一段会话与总数
func (s *PostgresStore) ConversationPage(ctx context.Context, accountID model.AccountID, offset, limit int) ([]model.ConversationRecord, int, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, 0, err
	}
	defer tx.Rollback(ctx)

	n, err := countConversations(ctx, tx, accountID)
	if err != nil {
		return nil, 0, err
	}
	rows, err := queryConversations(ctx, tx, accountID, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	return rows, n, tx.Commit(ctx)
}

func queryConversations(ctx context.Context, q querier, accountID model.AccountID, offset, limit int) ([]model.ConversationRecord, error) {
	if offset < 0 {
		offset = 0
	}
	query := selectConversation + ` WHERE c.account_id = $1 ORDER BY c.sort_order ASC, c.id ASC OFFSET $2`
	args := []any{accountID, offset}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.ConversationRecord, 0)
	for rows.Next() {
		rec, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func countConversations(ctx context.Context, q querier, accountID model.AccountID) (int, error) {
	var n int
	err := q.QueryRow(ctx, `SELECT COUNT(*) FROM conversations WHERE account_id = $1`, accountID).Scan(&n)
	return n, err
}

// Conversation 获取单个会话
func (s *PostgresStore) Conversation(ctx context.Context, accountID model.AccountID, id string) (*model.ConversationRecord, error) {
	rec, err := scanConversation(s.db.QueryRow(ctx, selectConversation+` WHERE c.account_id = $1 AND c.id = $2`, accountID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rec, nil
}

// ConversationByStatus 按最后一条状态查找会话
func (s *PostgresStore) ConversationByStatus(ctx context.Context, accountID model.AccountID, statusID string) (*model.ConversationRecord, error) {
	rec, err := scanConversation(s.db.QueryRow(ctx,
		selectConversation+` WHERE c.account_id = $1 AND c.last_status->>'id' = $2 LIMIT 1`, accountID, statusID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rec, nil
}

// DeleteConversation 删除单个会话
func (s *PostgresStore) DeleteConversation(ctx context.Context, accountID model.AccountID, id string) error {
	_, err := s.exec(ctx, accountID, `DELETE FROM conversations WHERE account_id = $1 AND id = $2`, accountID, id)
	return err
}

// SetUnread 更新会话未读标记
func (s *PostgresStore) SetUnread(ctx context.Context, accountID model.AccountID, id string, unread bool) error {
	n, err := s.exec(ctx, accountID, `UPDATE conversations SET unread = $3 WHERE account_id = $1 AND id = $2`, accountID, id, unread)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetFavourited 更新收藏标记与收藏数
func (s *PostgresStore) SetFavourited(ctx context.Context, accountID model.AccountID, statusID string, favourited bool) error {
	_, err := s.exec(ctx, accountID, `
		UPDATE conversations SET last_status = jsonb_set(
			jsonb_set(last_status, '{favourites_count}', to_jsonb(GREATEST(0,
				COALESCE((last_status->>'favourites_count')::int, 0) +
				CASE
					WHEN COALESCE((last_status->>'favourited')::boolean, FALSE) = $3::boolean THEN 0
					WHEN $3::boolean THEN 1
					ELSE -1
				END))),
			'{favourited}', to_jsonb($3::boolean))
		WHERE account_id = $1 AND last_status->>'id' = $2
	`, accountID, statusID, favourited)
	return err
}

// SetBookmarked 更新书签标记
func (s *PostgresStore) SetBookmarked(ctx context.Context, accountID model.AccountID, statusID string, bookmarked bool) error {
	return s.setStatusField(ctx, accountID, statusID, "bookmarked", bookmarked)
}

// SetMuted 更新静音标记
func (s *PostgresStore) SetMuted(ctx context.Context, accountID model.AccountID, statusID string, muted bool) error {
	return s.setStatusField(ctx, accountID, statusID, "muted", muted)
}

// SetVoted 替换投票
func (s *PostgresStore) SetVoted(ctx context.Context, accountID model.AccountID, statusID string, poll *model.Poll) error {
	data, err := json.Marshal(poll)
	if err != nil {
		return err
	}
	_, err = s.exec(ctx, accountID, `
		UPDATE conversations SET last_status = jsonb_set(last_status, '{poll}', $3::jsonb)
		WHERE account_id = $1 AND last_status->>'id' = $2
	`, accountID, statusID, data)
	return err
}

// setStatusField field 只来自本文件内的常量
func (s *PostgresStore) setStatusField(ctx context.Context, accountID model.AccountID, statusID, field string, value bool) error {
	_, err := s.exec(ctx, accountID, `
		UPDATE conversations SET last_status = jsonb_set(last_status, '{`+field+`}', to_jsonb($3::boolean))
		WHERE account_id = $1 AND last_status->>'id' = $2
	`, accountID, statusID, value)
	return err
}

// StatusViewData 批量读取覆盖层
func (s *PostgresStore) StatusViewData(ctx context.Context, accountID model.AccountID, statusIDs []string) (map[string]model.StatusViewDataEntity, error) {
	out := make(map[string]model.StatusViewDataEntity, len(statusIDs))
	if len(statusIDs) == 0 {
		return out, nil
	}

	rows, err := s.db.Query(ctx, `
		SELECT server_id, expanded, content_showing, content_collapsed, translation_state
		FROM status_view_data WHERE account_id = $1 AND server_id = ANY($2)
	`, accountID, statusIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		vd := model.StatusViewDataEntity{AccountID: accountID}
		var state *string
		if err := rows.Scan(&vd.ServerID, &vd.Expanded, &vd.ContentShowing, &vd.ContentCollapsed, &state); err != nil {
			return nil, err
		}
		if state != nil {
			vd.TranslationState = model.TranslationState(*state)
		}
		out[vd.ServerID] = vd
	}
	return out, rows.Err()
}

// setViewData column 只来自本文件内的常量
func (s *PostgresStore) setViewData(ctx context.Context, accountID model.AccountID, statusID, column string, value any) error {
	_, err := s.exec(ctx, accountID, `
		INSERT INTO status_view_data (account_id, server_id, `+column+`) VALUES ($1, $2, $3)
		ON CONFLICT (account_id, server_id) DO UPDATE SET `+column+` = EXCLUDED.`+column,
		accountID, statusID, value)
	return err
}

// SetExpanded 保存内容警告展开状态
func (s *PostgresStore) SetExpanded(ctx context.Context, accountID model.AccountID, statusID string, expanded bool) error {
	return s.setViewData(ctx, accountID, statusID, "expanded", expanded)
}

// SetContentShowing 保存敏感内容显示状态
func (s *PostgresStore) SetContentShowing(ctx context.Context, accountID model.AccountID, statusID string, showing bool) error {
	return s.setViewData(ctx, accountID, statusID, "content_showing", showing)
}

// SetContentCollapsed 保存长内容折叠状态
func (s *PostgresStore) SetContentCollapsed(ctx context.Context, accountID model.AccountID, statusID string, collapsed bool) error {
	return s.setViewData(ctx, accountID, statusID, "content_collapsed", collapsed)
}

// SetTranslationState 保存翻译状态
func (s *PostgresStore) SetTranslationState(ctx context.Context, accountID model.AccountID, statusID string, state model.TranslationState) error {
	return s.setViewData(ctx, accountID, statusID, "translation_state", string(state))
}

// UpsertAccount 写入账号
func (s *PostgresStore) UpsertAccount(ctx context.Context, account *model.Account) error {
	query := `
		INSERT INTO accounts (id, domain, username, access_token, always_show_sensitive_media, always_open_spoiler)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			domain = EXCLUDED.domain,
			username = EXCLUDED.username,
			access_token = EXCLUDED.access_token,
			always_show_sensitive_media = EXCLUDED.always_show_sensitive_media,
			always_open_spoiler = EXCLUDED.always_open_spoiler
		RETURNING created_at
	`
	err := s.db.QueryRow(ctx, query,
		account.ID,
		account.Domain,
		account.Username,
		account.AccessToken,
		account.AlwaysShowSensitiveMedia,
		account.AlwaysOpenSpoiler,
	).Scan(&account.CreatedAt)
	if err != nil {
		return err
	}
	s.notifier.Notify(account.ID)
	return nil
}

const selectAccount = `
	SELECT id, domain, username, access_token, always_show_sensitive_media, always_open_spoiler, created_at
	FROM accounts
`

func scanAccount(row pgx.Row) (*model.Account, error) {
	a := &model.Account{}
	err := row.Scan(
		&a.ID,
		&a.Domain,
		&a.Username,
		&a.AccessToken,
		&a.AlwaysShowSensitiveMedia,
		&a.AlwaysOpenSpoiler,
		&a.CreatedAt,
	)
	return a, err
}

// Account 获取账号
func (s *PostgresStore) Account(ctx context.Context, id model.AccountID) (*model.Account, error) {
	a, err := scanAccount(s.db.QueryRow(ctx, selectAccount+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return a, nil
}

// Accounts 获取全部账号
func (s *PostgresStore) Accounts(ctx context.Context) ([]model.Account, error) {
	rows, err := s.db.Query(ctx, selectAccount+` ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// DeleteAccount 删除账号，会话与覆盖层由外键级联删除
func (s *PostgresStore) DeleteAccount(ctx context.Context, id model.AccountID) error {
	n, err := s.exec(ctx, id, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func nullableState(state model.TranslationState) *string {
	if state == "" {
		return nil
	}
	v := string(state)
	return &v
}

// translateError 将外键错误映射为 ErrAccountNotFound
func translateError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
		return ErrAccountNotFound
	}
	return err
}
