// internal/services/notification/templates.go
package notification

import (
	"fmt"
	"strings"

	"jobmatcher/internal/models"
)

// statusTemplates maps an application status to the in-app notification
// content. Placeholders are filled from the application row.
var statusTemplates = map[string]map[string]string{
	models.StatusApplied: {
		"title":   "Application Received",
		"message": "Your application for {{jobTitle}} at {{company}} has been received.",
	},
	models.StatusUnderReview: {
		"title":   "Application Under Review",
		"message": "{{company}} is now reviewing your application for {{jobTitle}}.",
	},
	models.StatusInterview: {
		"title":   "Interview Invitation",
		"message": "Great news! {{company}} wants to interview you for {{jobTitle}}.",
	},
	models.StatusOffer: {
		"title":   "Job Offer Received",
		"message": "Congratulations! {{company}} has extended an offer for {{jobTitle}}.",
	},
	models.StatusHired: {
		"title":   "You're Hired",
		"message": "Congratulations! {{company}} has confirmed your hire for {{jobTitle}}.",
	},
	models.StatusRejected: {
		"title":   "Application Update",
		"message": "{{company}} has decided not to move forward with your application for {{jobTitle}}.",
	},
	models.StatusWithdrawn: {
		"title":   "Application Withdrawn",
		"message": "Your application for {{jobTitle}} at {{company}} has been withdrawn.",
	},
}

// teaserMessage replaces gated content for free-tier users. It must never
// include interview details or company notes.
const teaserMessage = "A company has updated your application status. Upgrade to Pro to see the full details."

const teaserTitle = "Application Status Updated"

func renderTemplate(tmpl string, data map[string]interface{}) string {
	result := tmpl

	for k, v := range data {
		placeholder := "{{" + k + "}}"
		value := ""
		if s, ok := v.(string); ok {
			value = s
		} else if v != nil {
			value = fmt.Sprintf("%v", v)
		}
		result = strings.ReplaceAll(result, placeholder, value)
	}

	// Any placeholder left unfilled renders as empty.
	for {
		start := strings.Index(result, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}}")
		if end == -1 {
			break
		}
		end += start + 2
		result = result[:start] + result[end:]
	}

	return result
}
