package response

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"farmstand-realtime/pkg/discord"
)

// sendDiscordMessageAsync reports in the background so the response is not delayed.
func sendDiscordMessageAsync(d discord.IDiscord, message string) {
	go func() {
		for _, msg := range splitMessageForDiscord(message) {
			if err := d.ReportBug(context.Background(), msg); err != nil {
				log.Printf("pkg.response.sendDiscordMessageAsync.ReportBug: %v\n", err)
			}
		}
	}()
}

// splitMessageForDiscord splits on line boundaries where it can.
func splitMessageForDiscord(message string) []string {
	var chunks []string
	var current string
	for _, line := range strings.Split(message, "\n") {
		line += "\n"
		if len(current)+len(line) > DiscordMaxMessageLen {
			if current != "" {
				chunks = append(chunks, strings.TrimSuffix(current, "\n"))
				current = ""
			}
			for len(line) > DiscordMaxMessageLen {
				chunks = append(chunks, line[:DiscordMaxMessageLen])
				line = line[DiscordMaxMessageLen:]
			}
		}
		current += line
	}
	if current != "" {
		chunks = append(chunks, strings.TrimSuffix(current, "\n"))
	}
	return chunks
}

// buildInternalServerErrorDataForReportBug renders the request for an error
// report. Authorization and Cookie headers are left out.
func buildInternalServerErrorDataForReportBug(c *gin.Context, errString string, backtrace []string) string {
	var sb strings.Builder
	sb.WriteString("============ FARMSTAND REALTIME ERROR ============\n")
	if c != nil && c.Request != nil {
		sb.WriteString(fmt.Sprintf("Route   : %s\n", c.Request.URL.Path))
		sb.WriteString(fmt.Sprintf("Method  : %s\n", c.Request.Method))
		if params := c.Request.URL.Query().Encode(); params != "" {
			sb.WriteString(fmt.Sprintf("Params  : %s\n", params))
		}
		for key, values := range c.Request.Header {
			if key == "Authorization" || key == "Cookie" {
				continue
			}
			sb.WriteString(fmt.Sprintf("Header  : %s: %s\n", key, strings.Join(values, ", ")))
		}
		if c.Request.Body != nil {
			body, err := io.ReadAll(c.Request.Body)
			if err == nil && len(body) > 0 {
				c.Request.Body = io.NopCloser(bytes.NewReader(body))
				sb.WriteString("Body    : " + string(body) + "\n")
			}
		}
	}
	sb.WriteString("--------------------------------------------------\n")
	sb.WriteString(fmt.Sprintf("Error   : %s\n", errString))
	if len(backtrace) > 0 {
		sb.WriteString("\nBacktrace:\n")
		for i, line := range backtrace {
			sb.WriteString(fmt.Sprintf("[%d]: %s\n", i, line))
		}
	}
	sb.WriteString("==================================================\n")
	return sb.String()
}
