package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"edunet-connect/internal/domain"
)

// VerificationNotifier delivers email verification links.
type VerificationNotifier interface {
	SendVerification(ctx context.Context, user *domain.User, link string) error
}

// LogNotifier writes verification links to the log instead of sending mail.
type LogNotifier struct {
	logger logrus.FieldLogger
}

func NewLogNotifier(logger logrus.FieldLogger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendVerification(_ context.Context, user *domain.User, link string) error {
	n.logger.WithFields(logrus.Fields{
		"user_id": user.ID,
		"email":   user.Email,
		"link":    link,
	}).Info("email verification requested")
	return nil
}
