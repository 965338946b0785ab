package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v3"

	"github.com/watson9049/billygold-website/internal/domain"
	"github.com/watson9049/billygold-website/pkg/logging"
)

const commandTimeout = 20 * time.Second

var log = logging.For("telegram")

// PriceSource is the part of the price engine the bot reads from.
type PriceSource interface {
	CurrentGoldPrice(ctx context.Context) domain.CurrentGoldPrice
	GetQuote(ctx context.Context, kind domain.QuoteKind) domain.Quote
	CalculatePrice(ctx context.Context, req domain.PriceCalculationRequest) (domain.PriceCalculationResult, error)
	DefaultFee() float64
}

type Advisor interface {
	Ask(ctx context.Context, conversationID, message string) (string, error)
}

// newBot is swapped in tests.
var newBot = tele.NewBot

// StartTelegramBot starts long polling in the background. An empty token
// skips startup and returns a nil bot. advisor may be nil, which disables /ask.
func StartTelegramBot(token string, prices PriceSource, advisor Advisor) (*tele.Bot, error) {
	if token == "" {
		log.Info("TELEGRAM_BOT_TOKEN not set, skipping Telegram bot startup")
		return nil, nil
	}
	b, err := newBot(tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	cmds := &commands{prices: prices, advisor: advisor}
	reply := func(fn func(ctx context.Context, c tele.Context) string) tele.HandlerFunc {
		return func(c tele.Context) error {
			ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
			defer cancel()
			return c.Send(fn(ctx, c))
		}
	}

	b.Handle("/ping", func(c tele.Context) error { return c.Send("pong") })
	b.Handle("/start", func(c tele.Context) error { return c.Send(helpText) })
	b.Handle("/help", func(c tele.Context) error { return c.Send(helpText) })
	b.Handle("/gold", reply(func(ctx context.Context, _ tele.Context) string {
		return cmds.gold(ctx)
	}))
	b.Handle("/metal", reply(func(ctx context.Context, c tele.Context) string {
		return cmds.metal(ctx, c.Args())
	}))
	b.Handle("/calc", reply(func(ctx context.Context, c tele.Context) string {
		return cmds.calc(ctx, c.Args())
	}))
	b.Handle("/ask", reply(func(ctx context.Context, c tele.Context) string {
		return cmds.ask(ctx, c.Chat().ID, c.Message().Payload)
	}))

	log.Info("Telegram bot started")
	go b.Start()
	return b, nil
}

const helpText = `金價小幫手
/gold 目前金價
/metal <gold|silver|platinum|copper|usd_twd> 單一報價
/calc <兩數> [工錢] 試算售價
/ask <問題> 詢問金價顧問`

type commands struct {
	prices  PriceSource
	advisor Advisor
}

func (c *commands) gold(ctx context.Context) string {
	cur := c.prices.CurrentGoldPrice(ctx)
	return fmt.Sprintf(
		"Gold: $%.2f/oz (%s)\nUSD/TWD: %.3f (%s)\nPer tael: NT$%.0f",
		cur.Gold.Value, cur.Gold.Source,
		cur.ExchangeRate.Value, cur.ExchangeRate.Source,
		cur.PricePerTaelTWD,
	)
}

func (c *commands) metal(ctx context.Context, args []string) string {
	supported := strings.Join(domain.SupportedKindNames(domain.AllKinds), ", ")
	if len(args) == 0 {
		return fmt.Sprintf("Usage: /metal silver\nSupported: %s", supported)
	}
	kind, err := domain.ParseQuoteKind(args[0])
	if err != nil {
		return fmt.Sprintf("Unknown kind: %s\nSupported: %s", args[0], supported)
	}
	q := c.prices.GetQuote(ctx, kind)
	return fmt.Sprintf("%s: %.4f (%s, %s)", q.Kind, q.Value, q.Source, q.FetchedAt.Format(time.RFC3339))
}

func (c *commands) calc(ctx context.Context, args []string) string {
	if len(args) == 0 {
		return fmt.Sprintf("Usage: /calc 1.5 [fee]\nDefault fee: NT$%.0f", c.prices.DefaultFee())
	}
	weight, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Sprintf("Invalid weight: %s", args[0])
	}
	req := domain.PriceCalculationRequest{Weight: weight}
	if len(args) > 1 {
		fee, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Sprintf("Invalid fee: %s", args[1])
		}
		req.Fee = &fee
	}

	res, err := c.prices.CalculatePrice(ctx, req)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return err.Error()
		}
		log.WithError(err).Warn("calc failed")
		return "Price calculation is temporarily unavailable"
	}
	return fmt.Sprintf(
		"%.2f tael\nGold value: NT$%.0f\nWorkmanship: NT$%.0f\nTotal: NT$%.0f",
		res.RequestedWeight, res.Breakdown.GoldValueTWD, res.Breakdown.FeeTWD, res.TotalPriceTWD,
	)
}

func (c *commands) ask(ctx context.Context, chatID int64, question string) string {
	if c.advisor == nil {
		return "The advisor is not configured"
	}
	if strings.TrimSpace(question) == "" {
		return "Usage: /ask 現在適合買金嗎？"
	}
	answer, err := c.advisor.Ask(ctx, ConversationID(chatID), question)
	if err != nil {
		log.WithError(err).WithField("chat_id", chatID).Warn("advisor failed")
		return "The advisor is temporarily unavailable"
	}
	return answer
}

// ConversationID keys advisor history by Telegram chat.
func ConversationID(chatID int64) string {
	return "telegram:" + strconv.FormatInt(chatID, 10)
}
