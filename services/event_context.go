package services

import (
	"github.com/tobi-04/srm-be-sub001/models"
)

// BuildEventContext converts a raw event payload into the canonical template
// variable context. Every event exposes a `user` sub-object (id/name/email)
// so templates can always address {{user.*}} regardless of event shape; the
// remaining fields depend on the event kind.
func BuildEventContext(eventKind string, payload map[string]interface{}) map[string]interface{} {
	ctx := map[string]interface{}{}

	user := map[string]interface{}{
		"id":    payloadValue(payload, "userId"),
		"name":  payloadString(payload, "name"),
		"email": payloadString(payload, "email"),
	}
	ctx["user"] = user

	switch eventKind {
	case models.EventUserRegistered:
		ctx["registered_at"] = payloadValue(payload, "registeredAt")

	case models.EventCoursePurchased:
		ctx["course"] = map[string]interface{}{
			"id":    payloadValue(payload, "courseId"),
			"title": payloadString(payload, "courseTitle"),
		}
		ctx["order"] = map[string]interface{}{
			"amount":       payloadValue(payload, "amount"),
			"purchased_at": payloadValue(payload, "purchasedAt"),
		}
		if v := payloadString(payload, "tempPassword"); v != "" {
			ctx["temp_password"] = v
		}
		ctx["is_new_user"] = payloadValue(payload, "isNewUser")

	case models.EventUserRegisteredNoPurchase:
		ctx["registered_at"] = payloadValue(payload, "registeredAt")
		ctx["days_since_registration"] = payloadValue(payload, "daysSinceRegistration")
	}

	return ctx
}

// MergeRecipientContext overlays the stored recipient record onto an event
// context. Event-supplied fields win on conflict so a temporary address used
// at purchase time is honored; the user record only fills the gaps.
func MergeRecipientContext(ctx map[string]interface{}, user *models.User) map[string]interface{} {
	if ctx == nil {
		ctx = map[string]interface{}{}
	}
	sub, _ := ctx["user"].(map[string]interface{})
	if sub == nil {
		sub = map[string]interface{}{}
		ctx["user"] = sub
	}
	if user != nil {
		if !isTruthy(sub["id"]) {
			sub["id"] = user.UserID
		}
		if s, _ := sub["name"].(string); s == "" {
			sub["name"] = user.FullName
		}
		if s, _ := sub["email"].(string); s == "" {
			sub["email"] = user.Email
		}
	}
	return ctx
}

// RecipientAddress picks the address a send should go to: the event override
// if present, otherwise the stored address.
func RecipientAddress(ctx map[string]interface{}, user *models.User) string {
	if sub, ok := ctx["user"].(map[string]interface{}); ok {
		if s, _ := sub["email"].(string); s != "" {
			return s
		}
	}
	if user != nil {
		return user.Email
	}
	return ""
}

func payloadValue(payload map[string]interface{}, key string) interface{} {
	if payload == nil {
		return nil
	}
	return payload[key]
}

func payloadString(payload map[string]interface{}, key string) string {
	if payload == nil {
		return ""
	}
	s, _ := payload[key].(string)
	return s
}

// SampleVariables returns the fixed preview dataset for an event kind.
// Unknown kinds fall back to the bare user object.
func SampleVariables(eventKind string) map[string]interface{} {
	user := map[string]interface{}{
		"id":    1001,
		"name":  "Nguyen Van An",
		"email": "an.nguyen@example.com",
	}

	switch eventKind {
	case models.EventCoursePurchased:
		return map[string]interface{}{
			"user": user,
			"course": map[string]interface{}{
				"id":    42,
				"title": "Advanced Web Development",
			},
			"order": map[string]interface{}{
				"amount":       299000,
				"purchased_at": "2026-09-01 10:30",
			},
			"temp_password": "ZLP123456",
			"is_new_user":   true,
		}
	case models.EventUserRegisteredNoPurchase:
		return map[string]interface{}{
			"user":                    user,
			"registered_at":           "2026-08-29 09:00",
			"days_since_registration": 3,
		}
	case models.EventUserRegistered:
		return map[string]interface{}{
			"user":          user,
			"registered_at": "2026-09-01 10:30",
		}
	default:
		return map[string]interface{}{"user": user}
	}
}
