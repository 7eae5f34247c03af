// Package shell provides the interactive dining guide and routes user input to the browse and chat views.
package shell

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/abiosoft/ishell/v2"

	diningcontext "diningguide/internal/context"
	"diningguide/internal/logger"
	"diningguide/internal/services"
	"diningguide/internal/version"
	"diningguide/pkg/diningtypes"
)

// ErrExit is returned by Execute when the user asks to leave the shell.
var ErrExit = errors.New("exit requested")

// commandPrefix marks a command inside the chat view, where bare text is a message.
const commandPrefix = `\`

// View is the screen the shell is showing.
type View int

const (
	// ViewBrowse lists foods and edits the selection.
	ViewBrowse View = iota
	// ViewChat talks to the assistant about the selection.
	ViewChat
)

// Printer is the output side of an ishell shell or context.
type Printer interface {
	Print(val ...interface{})
	Println(val ...interface{})
	Printf(format string, val ...interface{})
}

// Handler executes shell input against the registered services.
type Handler struct {
	out  Printer
	view View

	catalog   *services.CatalogService
	selection *services.SelectionStore
	chat      *services.ChatSessionService
	render    *services.RenderService
	markdown  *services.MarkdownService
}

type command struct {
	name  string
	usage string
	help  string
	run   func(h *Handler, ctx context.Context, args []string) error
}

var commands []command

func init() {
	commands = []command{
		{"foods", "foods", "List the food catalog", (*Handler).cmdFoods},
		{"toggle", "toggle <n|id>...", "Select or unselect foods by list number or id", (*Handler).cmdToggle},
		{"selected", "selected", "Show the selected foods", (*Handler).cmdSelected},
		{"recommend", "recommend", "Show the recommended dining hall", (*Handler).cmdRecommend},
		{"reload", "reload", "Reload the food catalog", (*Handler).cmdReload},
		{"chat", "chat", "Open the conversation about your selection", (*Handler).cmdChat},
		{"sidebar", "sidebar", "Show your selections and the recommended hall", (*Handler).cmdSidebar},
		{"history", "history", "Show the conversation so far", (*Handler).cmdHistory},
		{"export", "export <file>", "Save the conversation as .json, .yaml or .md", (*Handler).cmdExport},
		{"copy", "copy", "Copy the last assistant message to the clipboard", (*Handler).cmdCopy},
		{"browse", "browse", "Go back to the food list (the conversation is kept)", (*Handler).cmdBrowse},
		{"reset", "reset", "Clear the selection and the conversation", (*Handler).cmdReset},
		{"version", "version", "Show version information", (*Handler).cmdVersion},
		{"help", "help", "Show this help", (*Handler).cmdHelp},
		{"exit", "exit", "Leave the dining guide", (*Handler).cmdExit},
	}
}

// InitializeServices registers and initializes every service the shell and server use.
// overrides are applied on top of the layered configuration.
func InitializeServices(testMode bool, overrides map[string]string) error {
	globalCtx := diningcontext.GetGlobalContext()
	globalCtx.SetTestMode(testMode)

	registry := services.GetGlobalRegistry()

	config := services.NewConfigurationService()
	config.SetOverrides(overrides)

	for _, service := range []diningtypes.Service{
		config,
		services.NewClientFactoryService(),
		services.NewCatalogService(),
		services.NewSelectionService(),
		services.NewThemeService(),
		services.NewMarkdownService(),
		services.NewRenderService(),
		services.NewImageService(),
		services.NewChatSessionService(),
	} {
		if registry.HasService(service.Name()) {
			continue
		}
		if err := registry.RegisterService(service); err != nil {
			return err
		}
	}

	if err := registry.InitializeAll(); err != nil {
		return err
	}

	logger.Debug("Services initialized", "services", registry.Names())
	return nil
}

// NewHandler resolves the services the shell needs from the global registry.
func NewHandler(out Printer) (*Handler, error) {
	catalog, err := services.LookupService[*services.CatalogService]("catalog")
	if err != nil {
		return nil, err
	}
	selection, err := services.LookupService[*services.SelectionService]("selection")
	if err != nil {
		return nil, err
	}
	chat, err := services.LookupService[*services.ChatSessionService]("chat_session")
	if err != nil {
		return nil, err
	}
	render, err := services.LookupService[*services.RenderService]("render")
	if err != nil {
		return nil, err
	}
	markdown, err := services.LookupService[*services.MarkdownService]("markdown")
	if err != nil {
		return nil, err
	}

	return &Handler{
		out:       out,
		view:      ViewBrowse,
		catalog:   catalog,
		selection: selection.Store(),
		chat:      chat,
		render:    render,
		markdown:  markdown,
	}, nil
}

// View returns the current view.
func (h *Handler) View() View {
	return h.view
}

// Prompt returns the prompt for the current view.
func (h *Handler) Prompt() string {
	if h.view == ViewChat {
		return "chat> "
	}
	return "dining> "
}

// Execute runs one line of input.
// In the chat view bare text is sent to the assistant and commands need a
// leading backslash; in the browse view the backslash is optional.
func (h *Handler) Execute(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	if strings.HasPrefix(line, commandPrefix) {
		return h.dispatch(ctx, strings.TrimPrefix(line, commandPrefix))
	}
	if h.view == ViewChat {
		return h.send(ctx, line)
	}
	return h.dispatch(ctx, line)
}

func (h *Handler) dispatch(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	name := strings.ToLower(fields[0])
	for _, cmd := range commands {
		if cmd.name == name {
			return cmd.run(h, ctx, fields[1:])
		}
	}
	return fmt.Errorf("unknown command %q (type help for available commands)", name)
}

func (h *Handler) cmdFoods(ctx context.Context, _ []string) error {
	items, err := h.catalog.Load(ctx)
	if err != nil {
		h.out.Println(h.render.ErrorText("Could not load the food catalog."))
		h.out.Println("Type reload to try again.")
		return err
	}
	h.out.Println(h.render.FoodCards(items, h.selection.Contains))
	h.out.Println(h.render.SelectionBanner(h.selection.Len()))
	return nil
}

func (h *Handler) cmdToggle(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: toggle <n|id>...")
	}
	items, err := h.catalog.Load(ctx)
	if err != nil {
		return err
	}

	for _, arg := range args {
		item, ok := h.resolveFood(items, arg)
		if !ok {
			h.out.Println(h.render.ErrorText(fmt.Sprintf("No food matches %q", arg)))
			continue
		}
		if h.selection.Toggle(item) {
			h.out.Printf("Selected %s\n", item.Name)
		} else {
			h.out.Printf("Removed %s\n", item.Name)
		}
	}
	h.out.Println(h.render.SelectionBanner(h.selection.Len()))
	return nil
}

func (h *Handler) resolveFood(items []diningtypes.FoodItem, arg string) (diningtypes.FoodItem, bool) {
	if n, err := strconv.Atoi(arg); err == nil {
		if n >= 1 && n <= len(items) {
			return items[n-1], true
		}
		return diningtypes.FoodItem{}, false
	}
	return h.catalog.Lookup(arg)
}

func (h *Handler) cmdSelected(_ context.Context, _ []string) error {
	selected := h.selection.Snapshot()
	h.out.Println(h.render.SelectionBanner(len(selected)))
	for _, item := range selected {
		h.out.Println("  " + services.FormatFoodLine(item))
	}
	return nil
}

func (h *Handler) cmdRecommend(_ context.Context, _ []string) error {
	hall, ok := services.Recommend(h.selection.Snapshot())
	h.out.Println(h.render.Recommendation(hall, ok))
	return nil
}

func (h *Handler) cmdReload(ctx context.Context, _ []string) error {
	items, err := h.catalog.Reload(ctx)
	if err != nil {
		h.out.Println(h.render.ErrorText("Could not load the food catalog."))
		return err
	}
	h.out.Printf("Loaded %d food items\n", len(items))
	return nil
}

func (h *Handler) cmdChat(_ context.Context, _ []string) error {
	session, err := h.chat.Current()
	if err != nil {
		return err
	}
	h.view = ViewChat

	session.Activate(h.selection.Snapshot())
	if session.State() == diningtypes.StateEmpty {
		h.out.Println(h.render.EmptyState())
		return nil
	}

	h.out.Println(h.render.ChatHeader())
	h.printMessages(session.Messages())
	return nil
}

func (h *Handler) send(ctx context.Context, text string) error {
	session, err := h.chat.Current()
	if err != nil {
		return err
	}

	settled, err := session.SendUserMessage(ctx, text)
	if err != nil {
		if errors.Is(err, diningtypes.ErrSessionNotActive) {
			h.out.Println(h.render.EmptyState())
		}
		return err
	}

	h.out.Println(h.render.TypingIndicator())
	reply := <-settled
	h.printMessage(reply, session.LastError() != nil)
	return nil
}

func (h *Handler) printMessages(messages []diningtypes.ChatMessage) {
	for _, msg := range messages {
		h.printMessage(msg, false)
	}
}

func (h *Handler) printMessage(msg diningtypes.ChatMessage, failed bool) {
	h.out.Println(h.render.MessageLabel(msg))
	switch {
	case failed:
		h.out.Println(h.render.ErrorText(msg.Content))
	case msg.Role == diningtypes.RoleAssistant:
		h.out.Println(h.markdown.RenderOrPlain(msg.Content))
	default:
		h.out.Println(msg.Content)
	}
	h.out.Println()
}

func (h *Handler) cmdSidebar(_ context.Context, _ []string) error {
	session, err := h.chat.Current()
	if err != nil {
		return err
	}
	if session.State() == diningtypes.StateIdle || session.State() == diningtypes.StateAwaitingReply {
		hall, ok := session.Recommendation()
		h.out.Println(h.render.Sidebar(session.Selection(), hall, ok))
		return nil
	}

	selected := h.selection.Snapshot()
	hall, ok := services.Recommend(selected)
	h.out.Println(h.render.Sidebar(selected, hall, ok))
	return nil
}

func (h *Handler) cmdHistory(_ context.Context, _ []string) error {
	session, err := h.chat.Current()
	if err != nil {
		return err
	}
	messages := session.Messages()
	if len(messages) == 0 {
		h.out.Println("No conversation yet. Type chat to start one.")
		return nil
	}
	h.printMessages(messages)
	return nil
}

func (h *Handler) cmdExport(_ context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: export <file>")
	}
	session, err := h.chat.Current()
	if err != nil {
		return err
	}
	if err := services.WriteTranscript(session.Transcript(), args[0]); err != nil {
		return err
	}
	h.out.Printf("Conversation saved to %s\n", args[0])
	return nil
}

func (h *Handler) cmdCopy(_ context.Context, _ []string) error {
	session, err := h.chat.Current()
	if err != nil {
		return err
	}
	messages := session.Messages()
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role != diningtypes.RoleAssistant {
			continue
		}
		if err := services.CopyToClipboard(messages[i].Content); err != nil {
			return err
		}
		h.out.Println("Copied to clipboard.")
		return nil
	}
	return fmt.Errorf("no assistant message to copy")
}

func (h *Handler) cmdBrowse(ctx context.Context, args []string) error {
	h.view = ViewBrowse
	return h.cmdFoods(ctx, args)
}

func (h *Handler) cmdReset(_ context.Context, _ []string) error {
	if err := h.chat.Reset(); err != nil {
		return err
	}
	h.selection.Clear()
	h.view = ViewBrowse
	h.out.Println("Selection and conversation cleared.")
	return nil
}

func (h *Handler) cmdVersion(_ context.Context, _ []string) error {
	h.out.Println(version.Current().String())
	return nil
}

func (h *Handler) cmdHelp(_ context.Context, _ []string) error {
	h.out.Println("Commands (prefix with \\ inside the chat):")
	for _, cmd := range commands {
		h.out.Printf("  %-18s %s\n", cmd.usage, cmd.help)
	}
	h.out.Println("In the chat, anything else is sent to the assistant.")
	return nil
}

func (h *Handler) cmdExit(_ context.Context, _ []string) error {
	return ErrExit
}

// Attach routes all input of sh through the handler.
func (h *Handler) Attach(ctx context.Context, sh *ishell.Shell) {
	for _, builtin := range []string{"help", "exit", "clear"} {
		sh.DeleteCmd(builtin)
	}
	sh.SetPrompt(h.Prompt())

	sh.NotFound(func(c *ishell.Context) {
		err := h.Execute(ctx, strings.Join(c.RawArgs, " "))
		switch {
		case errors.Is(err, ErrExit):
			c.Stop()
			return
		case err != nil:
			logger.Debug("Command failed", "error", err)
			c.Println(h.render.ErrorText("Error: " + err.Error()))
		}
		c.SetPrompt(h.Prompt())
	})
}
