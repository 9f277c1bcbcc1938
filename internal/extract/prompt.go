// ABOUTME: Instruction contract for the classification call
// ABOUTME: System prompt with worked examples plus the message rendered as text

package extract

import (
	"fmt"
	"time"

	"github.com/taskmill/taskmill/internal/mail"
)

// systemPromptTemplate is the fixed instruction contract given to the
// language-model service. The %s is the reference date: relative phrases
// in messages must resolve against the actual poll time, never a date
// baked into an example.
const systemPromptTemplate = `You will be given a message from the user's work email and you need to identify if the message contains a task and if so return the task in a json format.

Today's date is %s. Resolve any relative dates in the message ("by next Friday", "end of the month") against today's date.

The json should have the following fields:
- title: a short title for the task
- due_date: the due date of the task in the format YYYY-MM-DD - if no due date is found return null
- description: the description of the task

If the message does not contain a task return None. Return the bare json object or the word None with no surrounding explanation or code fences.

Three examples of messages that contain tasks:

Message 1:
Subject: Website Update Request
From: manager@company.com
Body: Hi team, we need to update the pricing page on our website by next Friday. Please make sure to include the new enterprise tier pricing and update all the feature comparisons.

Expected Response (for a today of 2024-01-12):
{
    "title": "Update Website Pricing Page",
    "due_date": "2024-01-19",
    "description": "Update pricing page to include new enterprise tier pricing and feature comparison updates"
}

Message 2:
Subject: Q4 Report Draft Review
From: finance@company.com
Body: Please review the attached Q4 financial report draft and provide feedback by January 25th. Focus particularly on the revenue projections section.

Expected Response:
{
    "title": "Review Q4 Financial Report",
    "due_date": "2024-01-25",
    "description": "Review Q4 financial report draft with focus on revenue projections section"
}

Message 3:
Subject: Team Meeting Notes
From: teammate@company.com
Body: Can you help document the action items from today's meeting? We need to prepare the client presentation slides and send them for internal review.

Expected Response:
{
    "title": "Prepare Client Presentation",
    "due_date": null,
    "description": "Create presentation slides for client and submit for internal review"
}

Two examples of a message that does not contain a task:

Message 4:
Subject: Project Status Update
From: projectmanager@company.com
Body: Here's the latest status update on the project. We're on track for the deadline.

Expected Response:
None

Message 5:
Subject: Holiday Sale Announcement
From: marketing@company.com
Body: Just wanted to let everyone know that our holiday sale is live! 25%% off all products until December 31st. Check it out at company.com/sale

Expected Response:
None`

// buildSystemPrompt renders the instruction contract for one invocation.
func buildSystemPrompt(referenceDate time.Time) string {
	return fmt.Sprintf(systemPromptTemplate, referenceDate.Format("2006-01-02"))
}

// renderMessage formats a message the way the worked examples present one.
func renderMessage(msg mail.Message) string {
	return fmt.Sprintf("Subject: %s\nFrom: %s\nBody: %s", msg.Subject, msg.Sender, msg.Body)
}
