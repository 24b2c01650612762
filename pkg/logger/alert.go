package logger

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang-backtest/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap/zapcore"
)

// AlertCore tees entries carrying the send_alert flag to a webhook as a
// plain text message. Delivery is asynchronous and best effort.
type AlertCore struct {
	zapcore.Core
	client   *resty.Client
	url      string
	minLevel zapcore.Level
	fields   []zapcore.Field
}

func NewAlertCore(core zapcore.Core, url string, minLevel zapcore.Level) *AlertCore {
	return &AlertCore{
		Core:     core,
		client:   resty.New().SetTimeout(5 * time.Second),
		url:      url,
		minLevel: minLevel,
	}
}

func (a *AlertCore) With(fields []zapcore.Field) zapcore.Core {
	return &AlertCore{
		Core:     a.Core.With(fields),
		client:   a.client,
		url:      a.url,
		minLevel: a.minLevel,
		fields:   append(append([]zapcore.Field(nil), a.fields...), fields...),
	}
}

func (a *AlertCore) Check(entry zapcore.Entry, checkedEntry *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if a.Enabled(entry.Level) {
		return checkedEntry.AddCore(entry, a)
	}
	return checkedEntry
}

func (a *AlertCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	if entry.Level >= a.minLevel && shouldAlert(fields) {
		all := append(append([]zapcore.Field(nil), a.fields...), fields...)
		go a.send(entry, all)
	}
	return a.Core.Write(entry, fields)
}

func shouldAlert(fields []zapcore.Field) bool {
	for _, f := range fields {
		if f.Key == common.KEY_LOG_HOOK_SEND_ALERT && f.Type == zapcore.BoolType && f.Integer == 1 {
			return true
		}
	}
	return false
}

func alertMessage(entry zapcore.Entry, fields []zapcore.Field) string {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range fields {
		if f.Key == common.KEY_LOG_HOOK_SEND_ALERT {
			continue
		}
		f.AddTo(enc)
	}

	keys := make([]string, 0, len(enc.Fields))
	for k := range enc.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s\n", entry.Level.CapitalString(), entry.Message)
	for _, k := range keys {
		fmt.Fprintf(&sb, "- %s: %v\n", k, enc.Fields[k])
	}
	fmt.Fprintf(&sb, "time: %s", entry.Time.UTC().Format(time.RFC3339))
	return sb.String()
}

func (a *AlertCore) send(entry zapcore.Entry, fields []zapcore.Field) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, _ = a.client.R().
		SetContext(ctx).
		SetBody(map[string]string{"text": alertMessage(entry, fields)}).
		Post(a.url)
}
