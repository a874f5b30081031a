package config

const (
	DefaultServerHost            = "0.0.0.0"
	DefaultServerPort            = 8080
	DefaultServerLogLevel        = "info"
	DefaultServerReadTimeout     = "30s"
	DefaultServerWriteTimeout    = "30s"
	DefaultServerIdleTimeout     = "120s"
	DefaultServerShutdownTimeout = "10s"

	DefaultPathsMemory         = "../MEMORY.md"
	DefaultPathsHistory        = "./history"
	DefaultPathsDownloads      = "./downloads"
	DefaultPathsWeb            = "./web"
	DefaultPathsDrawBotProfile = "./profiles/draw_bot.md"
	DefaultPathsRepoRoot       = ".."

	DefaultChatUserID       = "web_user"
	DefaultChatHistoryLimit = 100
	DefaultChatServiceName  = "ThinxAI Web Chat"

	DefaultAssistantCommand         = "claude --output-format stream-json --verbose"
	DefaultAssistantSkipPermissions = true
	DefaultAssistantReadChunkSize   = 64 * 1024

	DefaultRelayKeepaliveInterval  = "5s"
	DefaultRelayKeepaliveThreshold = "4s"
	DefaultRelayMaxEventSize       = 16 * 1024
	DefaultRelayMaxChunkSize       = 16 * 1024
	DefaultRelaySummaryPrefix      = 500
	DefaultRelayErrorPrefix        = 500

	DefaultChatHistoryLoad       = 20
	DefaultChatHistoryWindow     = 10
	DefaultDrawBotHistoryLoad    = 10
	DefaultDrawBotHistoryWindow  = 6
	DefaultDrawBotIdentitySuffix = "_draw_bot"

	DefaultUploadMaxBytes int64 = 20 * 1024 * 1024

	DefaultStoreLockTimeout  = "5s"
	DefaultStoreLockRetry    = "100ms"
	DefaultStoreLockMaxRetry = 50
	DefaultStoreInboxSize    = 128

	DefaultMailHost          = "smtp.gmail.com"
	DefaultMailPort          = 465
	DefaultMailOrganizerName = "ThinxAI"
	DefaultMailUIDDomain     = "thinxai.net"
	DefaultMailTimeout       = "30s"
	DefaultMailProbeTimeout  = "10s"

	DefaultDaemonShutdownTimeout     = "15s"
	DefaultDaemonHealthCheckInterval = "30s"
)

var DefaultHealthProbes = map[string]string{
	"hostname": "hostname",
	"uptime":   "uptime -p",
	"disk":     "df -h /",
	"memory":   "free -h",
	"load":     "cat /proc/loadavg",
}

const DefaultChatInstructions = `<system_instructions>
When you create or reference an image file, output it using this format so it displays in the chat:
[ACTION:show_image|/full/path/to/image.png]

For example, after generating a diagram at /tmp/diagram.png, include:
[ACTION:show_image|/tmp/diagram.png]

The image will be rendered inline in the chat interface.
</system_instructions>`

const DefaultDrawBotInstructions = `<system_instructions>
You are Draw Bot, a specialized diagramming assistant. Your job is to create professional-quality diagrams.

When you create or reference an image file, output it using this format so it displays in the chat:
[ACTION:show_image|/full/path/to/image.png]

For example, after generating a diagram at /tmp/diagram.png, include:
[ACTION:show_image|/tmp/diagram.png]

The image will be rendered inline in the chat interface.
</system_instructions>`

const DefaultDrawBotBehavior = `<behavior>
## Your Workflow

1. **Diagnostic Intake**: When the user first describes what they need, ask the diagnostic questions from your profile to clarify:
   - Purpose & audience
   - Diagram type
   - Style preference
   - Output format
   - Key elements to include

2. **Tool Selection**: Based on their answers, choose the appropriate tool:
   - D2 for clean architecture diagrams
   - Mermaid for sequences and flowcharts
   - nomnoml for hand-drawn/sketchy style
   - Structurizr for formal C4 architecture
   - PlantUML for UML diagrams

3. **Create the Diagram**: Generate the diagram code and render it using the appropriate skill (/d2, /mermaid, /kroki, etc.)

4. **Quality Check**: Verify against your checklist before delivering

5. **Iterate**: Ask if they want any adjustments

## Important Rules
- Always ask clarifying questions before creating the diagram (unless they've provided all needed info)
- Save diagrams to the diagrams/ directory with proper naming
- Use the ThinxAI color palette unless they request something different
- **ALWAYS use white (#FFFFFF) background by default for ALL diagrams** - this is mandatory unless user explicitly requests otherwise
- Show the rendered image using the [ACTION:show_image|path] format
</behavior>`
