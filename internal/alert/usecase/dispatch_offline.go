package usecase

import (
	"context"
	"fmt"
	"strings"

	"farmstand-realtime/internal/alert"
	"farmstand-realtime/pkg/discord"
)

func (uc *implUseCase) DispatchRealtimeOffline(ctx context.Context, input alert.RealtimeOfflineInput) error {
	if uc.discord == nil {
		return nil
	}
	if input.SessionID == "" {
		return alert.ErrInvalidInput
	}

	var down []alert.ChannelState
	for _, ch := range input.Channels {
		if ch.Status != "subscribed" && uc.shouldSend("offline:"+ch.Name) {
			down = append(down, ch)
		}
	}
	if len(down) == 0 {
		return nil
	}

	lines := make([]string, len(down))
	for i, ch := range down {
		lines[i] = fmt.Sprintf("`%s/%s` %s", ch.Kind, ch.Scope, ch.Status)
	}

	opts := discord.MessageOptions{
		Type:        discord.MessageTypeWarning,
		Title:       "Realtime session offline",
		Description: fmt.Sprintf("Session **%s** (%s) lost %d channel(s).", input.SessionID, input.Role, len(down)),
		Fields: []discord.EmbedField{
			buildField("User", input.UserID, true),
			buildField("Role", input.Role, true),
			buildField("Channels", strings.Join(lines, "\n"), false),
		},
		Timestamp: input.OccurredAt,
	}

	if err := uc.discord.SendEmbed(ctx, opts); err != nil {
		uc.logger.Errorf(ctx, "internal.alert.usecase.DispatchRealtimeOffline.SendEmbed: %v", err)
		return fmt.Errorf("%w: %v", alert.ErrDispatchFailed, err)
	}
	return nil
}
