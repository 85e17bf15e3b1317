package usecase

import (
	"context"
	"sync"

	"card-registration-kit/internal/domain"
)

// Registration は非同期に完了するカード登録の結果。ちょうど1回だけ解決される。
type Registration struct {
	once   sync.Once
	done   chan struct{}
	result *domain.TokenizationResult
	err    error
}

func newRegistration() *Registration {
	return &Registration{done: make(chan struct{})}
}

// resolve は結果を確定する。2回目以降の呼び出しは無視される。
func (r *Registration) resolve(result *domain.TokenizationResult, err error) {
	r.once.Do(func() {
		r.result = result
		r.err = err
		close(r.done)
	})
}

// Done は結果が確定するとcloseされるチャネルを返す。
func (r *Registration) Done() <-chan struct{} {
	return r.done
}

// Result は結果が確定するまで待ち、結果を返す。失敗時のerrは*domain.ResultError。
func (r *Registration) Result() (*domain.TokenizationResult, error) {
	<-r.done
	return r.result, r.err
}

// Wait は結果の確定かctxの終了まで待つ。ctxが先に終了してもリクエストは中断されない。
func (r *Registration) Wait(ctx context.Context) (*domain.TokenizationResult, error) {
	select {
	case <-r.done:
		return r.result, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
