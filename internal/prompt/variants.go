package prompt

import "github.com/harunnryd/thinx/internal/config"

const (
	VariantChat    = "chat"
	VariantDrawBot = "draw_bot"
)

func ChatVariant(cfg *config.Config) Variant {
	return Variant{
		Name:     VariantChat,
		Identity: cfg.Chat.UserID,
		Blocks: []Block{
			{Text: cfg.Prompts.Chat.Instructions},
			{Tag: "memory", Path: cfg.Paths.Memory},
		},
		HistoryLoad:   cfg.Prompts.Chat.HistoryLoad,
		HistoryWindow: cfg.Prompts.Chat.HistoryWindow,
	}
}

// DrawBotVariant keeps its own log so diagram sessions never leak into chat.
func DrawBotVariant(cfg *config.Config) Variant {
	return Variant{
		Name:     VariantDrawBot,
		Identity: cfg.Chat.UserID + cfg.Prompts.DrawBot.IdentitySuffix,
		Blocks: []Block{
			{Text: cfg.Prompts.DrawBot.Instructions},
			{Tag: "draw_bot_profile", Path: cfg.Paths.DrawBotProfile},
			{Text: cfg.Prompts.DrawBot.Behavior},
		},
		HistoryLoad:   cfg.Prompts.DrawBot.HistoryLoad,
		HistoryWindow: cfg.Prompts.DrawBot.HistoryWindow,
	}
}
