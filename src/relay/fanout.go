package relay

// Broadcast scopes. Every event goes to the global scope; exchange and bot
// scopes are added when the event carries the matching discriminator.
const ScopeGlobal = "global"

// Broadcaster delivers one event to the union of the given scopes, at most
// once per connected client. Implemented by the websocket hub; a
// NopBroadcaster stands in before the live transport is up.
type Broadcaster interface {
	Broadcast(channel string, scopes []string, event map[string]interface{})
}

// NopBroadcaster swallows all broadcasts. Used during startup and in tests:
// fan-out is best-effort relative to persistence.
type NopBroadcaster struct{}

func (NopBroadcaster) Broadcast(string, []string, map[string]interface{}) {}

// ScopesFor determines the broadcast scopes from the event fields.
func ScopesFor(event map[string]interface{}) []string {
	scopes := []string{ScopeGlobal}

	if exchange, ok := event["exchange"].(string); ok && exchange != "" {
		scopes = append(scopes, "exchange:"+exchange)
	}
	if botID, ok := event["botId"].(string); ok && botID != "" {
		scopes = append(scopes, "bot:"+botID)
	}

	return scopes
}
