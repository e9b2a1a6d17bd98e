package mqtt

import (
	"context"

	coremetrics "github.com/kilianp07/resident-scheduler/core/metrics"
	coremqtt "github.com/kilianp07/resident-scheduler/core/mqtt"
	"github.com/kilianp07/resident-scheduler/infra/logger"
)

// Forward publishes every state event received on ch until ctx is done or
// ch is closed. Publish failures are logged and do not stop forwarding.
// Subscribe before the first solve starts so no transition is missed:
//
//	ch := bus.Subscribe()
//	defer bus.Unsubscribe(ch)
//	go Forward(ctx, ch, pub, log)
func Forward(ctx context.Context, ch <-chan coremetrics.StateEvent, pub coremqtt.Publisher, log logger.Logger) {
	if ch == nil || pub == nil {
		return
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if err := pub.PublishState(ev); err != nil {
				log.Warnf("forward state %s->%s of run %s: %v", ev.From, ev.To, ev.RunID, err)
			}
		}
	}
}
