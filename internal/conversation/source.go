package conversation

import (
	"context"

	"sudooom.fedi.sync/internal/model"
	"sudooom.fedi.sync/internal/paging"
	"sudooom.fedi.sync/internal/repository"
)

// PagingSource 从本地存储按 sort_order 读取账号的会话，不访问网络
type PagingSource struct {
	paging.Invalidation

	accountID model.AccountID
	store     repository.Store
}

// NewPagingSource 创建数据源
func NewPagingSource(accountID model.AccountID, store repository.Store) *PagingSource {
	return &PagingSource{accountID: accountID, store: store}
}

// Load 读取一页，key 为行偏移
func (s *PagingSource) Load(ctx context.Context, params paging.LoadParams) (paging.Page[model.ConversationRecord], error) {
	if s.Invalid() {
		return paging.Page[model.ConversationRecord]{}, paging.ErrInvalid
	}

	offset := 0
	if params.Key != nil && *params.Key > 0 {
		offset = *params.Key
	}
	limit := params.LoadSize
	if limit <= 0 {
		limit = 20
	}

	var (
		rows  []model.ConversationRecord
		count = -1
		err   error
	)
	if params.PlaceholdersEnabled {
		rows, count, err = s.store.ConversationPage(ctx, s.accountID, offset, limit)
	} else {
		rows, err = s.store.Conversations(ctx, s.accountID, offset, limit)
	}
	if err != nil {
		return paging.Page[model.ConversationRecord]{}, err
	}
	if s.Invalid() {
		return paging.Page[model.ConversationRecord]{}, paging.ErrInvalid
	}

	page := paging.Page[model.ConversationRecord]{
		Data:        rows,
		ItemsBefore: paging.CountUndefined,
		ItemsAfter:  paging.CountUndefined,
	}
	if offset > 0 {
		page.PrevKey = paging.Key(max(0, offset-limit))
	}
	if len(rows) == limit && (count < 0 || offset+len(rows) < count) {
		page.NextKey = paging.Key(offset + len(rows))
	}
	if count >= 0 {
		page.ItemsBefore = offset
		page.ItemsAfter = max(0, count-offset-len(rows))
	}
	return page, nil
}
