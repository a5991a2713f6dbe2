package thread

import (
	"context"

	"sudooom.fedi.sync/internal/events"
	"sudooom.fedi.sync/internal/model"
	"sudooom.fedi.sync/internal/usecase"
)

// Factory 按账号创建线程视图
type Factory struct {
	accounts func(ctx context.Context, id model.AccountID) (*model.Account, error)
	clients  func(ctx context.Context, id model.AccountID) (API, error)
	store    Store
	cases    *usecase.TimelineCases
	hub      *events.Hub
}

// NewFactory 创建线程视图工厂
func NewFactory(
	accounts func(ctx context.Context, id model.AccountID) (*model.Account, error),
	clients func(ctx context.Context, id model.AccountID) (API, error),
	store Store,
	cases *usecase.TimelineCases,
	hub *events.Hub,
) *Factory {
	return &Factory{accounts: accounts, clients: clients, store: store, cases: cases, hub: hub}
}

// Open 创建线程视图，调用方负责 Close
func (f *Factory) Open(ctx context.Context, accountID model.AccountID, statusID string) (*ViewModel, error) {
	account, err := f.accounts(ctx, accountID)
	if err != nil {
		return nil, err
	}
	client, err := f.clients(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return New(account, statusID, client, f.store, f.cases, f.hub), nil
}

// Load 加载线程直到 Success 或 Error，同时返回加载过程中的非致命错误
func (f *Factory) Load(ctx context.Context, accountID model.AccountID, statusID string) (State, []error, error) {
	vm, err := f.Open(ctx, accountID, statusID)
	if err != nil {
		return nil, nil, err
	}
	defer vm.Close()

	vm.Load()
	state, err := vm.Wait(ctx, IsTerminal)
	if err != nil {
		return nil, nil, err
	}

	var warnings []error
	for {
		select {
		case e := <-vm.Errors():
			warnings = append(warnings, e)
		default:
			return state, warnings, nil
		}
	}
}
