// Package commission периодически выплачивает реселлерам комиссию с использования
// их клиентов.
package commission

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fsdevblog/bulkgate/internal/domain"
)

//go:generate mockgen -source=runner.go -destination=mocks/mocks.go -package=mocks

const (
	defaultServiceTimeout = 3 * time.Second
	defaultInterval       = 24 * time.Hour
)

// Servicer часть сервиса комиссий, нужная обходчику.
type Servicer interface {
	Resellers(ctx context.Context) ([]domain.User, error)
	Customers(ctx context.Context, resellerID int64) ([]domain.User, error)
	Pay(ctx context.Context, resellerID, customerID int64) (*domain.CommissionRecord, error)
}

// Runner обходит реселлеров и выплачивает каждому комиссию за его клиентов.
// Идемпотентность обеспечивает сам сервис: повторная выплата за тот же период
// отклоняется ключом периода, поэтому частота запуска на суммы не влияет.
type Runner struct {
	svs      Servicer
	l        *logrus.Entry
	interval time.Duration
}

func New(svs Servicer, l *logrus.Logger) *Runner {
	loggerEntry := l.WithFields(logrus.Fields{
		"component": "commission",
		"module":    "runner",
	})

	return &Runner{
		svs:      svs,
		l:        loggerEntry,
		interval: defaultInterval,
	}
}

// SetInterval устанавливает период между обходами.
func (r *Runner) SetInterval(interval time.Duration) *Runner {
	r.interval = interval
	return r
}

// Run выполняет обход сразу при старте и далее с заданным интервалом до отмены
// контекста.
func (r *Runner) Run(ctx context.Context) {
	r.l.WithField("interval", r.interval.String()).Info("Starting")

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			r.l.Info("Got stop signal, exiting...")
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

// sweep один полный обход: для каждого активного реселлера выплата по каждому его
// клиенту. Ошибка по отдельной паре реселлер/клиент обход не прерывает.
func (r *Runner) sweep(ctx context.Context) {
	reqCtx, cancel := context.WithTimeout(ctx, defaultServiceTimeout)
	resellers, resellersErr := r.svs.Resellers(reqCtx)
	cancel()

	if resellersErr != nil {
		r.l.WithError(resellersErr).Error("listing resellers")
		return
	}

	for _, reseller := range resellers {
		if ctx.Err() != nil {
			return
		}
		r.sweepReseller(ctx, reseller.ID)
	}
}

func (r *Runner) sweepReseller(ctx context.Context, resellerID int64) {
	reqCtx, cancel := context.WithTimeout(ctx, defaultServiceTimeout)
	customers, customersErr := r.svs.Customers(reqCtx, resellerID)
	cancel()

	if customersErr != nil {
		r.l.WithError(customersErr).WithField("resellerID", resellerID).Error("listing customers")
		return
	}

	for _, customer := range customers {
		if ctx.Err() != nil {
			return
		}

		payCtx, payCancel := context.WithTimeout(ctx, defaultServiceTimeout)
		record, payErr := r.svs.Pay(payCtx, resellerID, customer.ID)
		payCancel()

		l := r.l.WithFields(logrus.Fields{
			"resellerID": resellerID,
			"customerID": customer.ID,
		})
		if payErr != nil {
			// нечего платить и уже выплаченный период - штатные исходы обхода.
			if errors.Is(payErr, domain.ErrNothingToPay) || errors.Is(payErr, domain.ErrDuplicateKey) {
				l.WithError(payErr).Debug("commission skipped")
				continue
			}
			l.WithError(payErr).Error("paying commission")
			continue
		}
		l.WithField("amount", record.CommissionAmount).Info("commission paid")
	}
}
