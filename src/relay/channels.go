package relay

// Channels published by the trading engines. Exact channels carry
// engine-lifecycle events; prefixed families are parameterized by an engine
// or exchange identifier.
const (
	ChannelEngineRegister  = "te:engine:register"
	ChannelEngineHeartbeat = "te:engine:heartbeat"
	ChannelEngineShutdown  = "te:engine:shutdown"

	PrefixBotStatus         = "te:bot:status:"
	PrefixBotHeartbeat      = "te:bot:heartbeat:"
	PrefixOrderUpdate       = "te:order:update:"
	PrefixTradeNew          = "te:trade:new:"
	PrefixPositionUpdate    = "te:position:update:"
	PrefixRiskAlert         = "te:risk:alert:"
	PrefixMarketResolved    = "te:market:resolved:"
	PrefixSystemHealth      = "te:system:health:"
	PrefixExchangeStatus    = "te:exchange:status:"
	PrefixExchangeRateLimit = "te:exchange:rateLimit:"
)

// SubscribeChannels are the exact channel names to subscribe to.
var SubscribeChannels = []string{
	ChannelEngineRegister,
	ChannelEngineHeartbeat,
	ChannelEngineShutdown,
}

// SubscribePatterns are the wildcard patterns to psubscribe to. They must
// stay in sync with the prefix constants above.
var SubscribePatterns = []string{
	PrefixBotStatus + "*",
	PrefixBotHeartbeat + "*",
	PrefixOrderUpdate + "*",
	PrefixTradeNew + "*",
	PrefixPositionUpdate + "*",
	PrefixRiskAlert + "*",
	PrefixMarketResolved + "*",
	PrefixSystemHealth + "*",
	PrefixExchangeStatus + "*",
	PrefixExchangeRateLimit + "*",
}
