package usecase

import (
	"context"
	"fmt"

	"farmstand-realtime/internal/alert"
)

const configIssueTitle = "Realtime configuration problem"

func (uc *implUseCase) DispatchConfigIssue(ctx context.Context, input alert.ConfigIssueInput) error {
	if uc.discord == nil {
		return nil
	}
	if input.Component == "" || input.Problem == "" {
		return alert.ErrInvalidInput
	}
	if !uc.shouldSend("config:" + input.Component) {
		return nil
	}

	desc := fmt.Sprintf("**%s**: %s", input.Component, input.Problem)
	if err := uc.discord.SendError(ctx, configIssueTitle, desc, input.Err); err != nil {
		uc.logger.Errorf(ctx, "internal.alert.usecase.DispatchConfigIssue.SendError: %v", err)
		return fmt.Errorf("%w: %v", alert.ErrDispatchFailed, err)
	}
	return nil
}
