package amqp

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/fx"

	"github.com/MaximallyHack/Maximally-Hack-sub003/internal/adapter/pubsub"
)

var Module = fx.Module("amqp-handler",
	fx.Provide(
		NewIngressHandler,
		NewWatermillRouter,
	),

	fx.Invoke(func(lc fx.Lifecycle, router *message.Router, h *IngressHandler, subs *pubsub.SubscriberProvider) error {
		if err := h.RegisterHandlers(router, subs); err != nil {
			return err
		}

		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				// Run owns its own lifetime; Close below unblocks it.
				go func() {
					if err := router.Run(context.Background()); err != nil {
						h.logger.Error("bus router stopped", "error", err)
					}
				}()
				return nil
			},
			OnStop: func(context.Context) error {
				return router.Close()
			},
		})
		return nil
	}),
)
