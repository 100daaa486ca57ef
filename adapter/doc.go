// Package adapter translates platform exports into RawContent.
//
// A PlatformAdapter knows the shape of one platform's export (a ChatGPT
// conversations.json, a Claude Code session log, a social thread) and turns
// it into one RawContent per conversation in a format the registry can
// extract. Multi-conversation exports fan out into several items.
//
// Adding a platform means implementing PlatformAdapter and registering it
// ahead of the generic adapter, plus optional normalize.Rules for the
// platform's role names and timestamp layouts.
package adapter
