package app

import (
	"context"
	"strings"
	"time"

	"alphabot/internal/transport"
	"alphabot/internal/transport/telegram"
	"alphabot/pkg/logx"
)

const (
	welcomeText = "Alpha Airdrop Bot is ready!\n\n" +
		"`/alpha` - show events\n" +
		"`/stop` - stop the bot & turn off reminders"

	optInOKText      = "✅ Automatic reminders enabled."
	optOutOKText     = "✅ Automatic reminders disabled."
	storeDownInText  = "⚠️ Storage error, could not enable reminders."
	storeDownOutText = "❌ Storage error, could not disable reminders."
	searchingText    = "🔍 Searching for events..."
)

// handlerTimeout bounds one command round-trip including the upstream fetch.
const handlerTimeout = 45 * time.Second

func (a *App) routeUpdates(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case up := <-a.updates:
			func() {
				hctx, cancel := context.WithTimeout(ctx, handlerTimeout)
				defer cancel()
				switch up.Kind {
				case transport.UpdateMessage:
					if up.Message != nil {
						a.handleMessage(hctx, up.Message)
					}
				case transport.UpdateCallback:
					if up.Callback != nil {
						a.handleCallback(hctx, up.Callback)
					}
				}
			}()
		}
	}
}

func (a *App) handleMessage(ctx context.Context, m *transport.Message) {
	text := strings.TrimSpace(m.Text)
	if text == "" || !strings.HasPrefix(text, "/") {
		return
	}
	cmd := strings.ToLower(strings.Fields(text)[0])
	// Group chats address commands as /cmd@botname.
	if i := strings.Index(cmd, "@"); i > 0 {
		cmd = cmd[:i]
	}

	target := transport.ChatTarget{ChatID: m.ChatID}
	switch cmd {
	case "/start":
		a.reply(ctx, target, welcomeText)
		if a.store == nil {
			a.reply(ctx, target, storeDownInText)
			return
		}
		if err := a.store.Add(ctx, m.ChatID); err != nil {
			a.log.Warn("opt-in failed", logx.Int64("chat_id", m.ChatID), logx.Err(err))
			a.reply(ctx, target, storeDownInText)
			return
		}
		a.reply(ctx, target, optInOKText)

	case "/stop":
		if a.store == nil {
			a.reply(ctx, target, storeDownOutText)
			return
		}
		if err := a.store.Remove(ctx, m.ChatID); err != nil {
			a.log.Warn("opt-out failed", logx.Int64("chat_id", m.ChatID), logx.Err(err))
			a.reply(ctx, target, storeDownOutText)
			return
		}
		a.reply(ctx, target, optOutOKText)

	case "/alpha":
		a.handleDigest(ctx, target, m.ID)
	}
}

// handleDigest posts a placeholder right away (the fetch can take seconds),
// then edits it into the digest.
func (a *App) handleDigest(ctx context.Context, target transport.ChatTarget, replyTo int) {
	ref, err := a.adapter.SendText(ctx, target, searchingText, &transport.SendOptions{ReplyTo: replyTo})
	if err != nil {
		a.log.Warn("placeholder send failed", logx.Int64("chat_id", target.ChatID), logx.Err(err))
		return
	}

	text, nextToken := a.svc.Digest(ctx, time.Now())
	opt := &transport.SendOptions{
		ParseMode:          "Markdown",
		DisablePreview:     true,
		ReplyMarkupAdapter: telegram.DigestMarkup(nextToken, a.currentTradeURL()),
	}
	if err := a.adapter.EditText(ctx, ref, text, opt); err != nil {
		a.log.Warn("digest edit failed", logx.Int64("chat_id", target.ChatID), logx.Err(err))
	}
}

func (a *App) handleCallback(ctx context.Context, cb *transport.Callback) {
	// Always answer; an unanswered callback leaves the client spinner running.
	_ = a.adapter.AnswerCallback(ctx, cb.ID, "")

	if cb.Data != telegram.RefreshCallbackData {
		return
	}

	text, nextToken := a.svc.Digest(ctx, time.Now())
	if text == cb.MessageText {
		// Telegram rejects no-op edits; skip them outright.
		return
	}
	ref := transport.MessageRef{ChatID: cb.ChatID, MessageID: cb.MessageID}
	opt := &transport.SendOptions{
		ParseMode:          "Markdown",
		DisablePreview:     true,
		ReplyMarkupAdapter: telegram.DigestMarkup(nextToken, a.currentTradeURL()),
	}
	if err := a.adapter.EditText(ctx, ref, text, opt); err != nil {
		a.log.Warn("refresh edit failed", logx.Int64("chat_id", cb.ChatID), logx.Err(err))
	}
}

func (a *App) reply(ctx context.Context, target transport.ChatTarget, text string) {
	if _, err := a.adapter.SendText(ctx, target, text, &transport.SendOptions{ParseMode: "Markdown"}); err != nil {
		a.log.Warn("reply failed", logx.Int64("chat_id", target.ChatID), logx.Err(err))
	}
}
