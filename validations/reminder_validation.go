package validations

import (
	"context"

	pkgError "github.com/AzielCF/az-remind/pkg/error"
	"github.com/AzielCF/az-remind/reminder/domain"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

func ValidateCreateReminder(ctx context.Context, request domain.CreateReminderRequest) error {
	isGmail := request.Type == domain.TypeGmail
	isTelegram := request.Type == domain.TypeTelegram
	isLocation := request.Type == domain.TypeLocation
	needsContact := request.Type.RequiresContact()

	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.Type, validation.Required, validation.In(
			domain.TypeLocation, domain.TypeNote, domain.TypeGmail, domain.TypeSMS,
			domain.TypeWhatsApp, domain.TypeWhatsAppBusiness, domain.TypeTelegram, domain.TypePhone,
		)),
		validation.Field(&request.Date, validation.Required),
		validation.Field(&request.Frequency, validation.In(
			domain.FrequencyNone, domain.FrequencyDaily, domain.FrequencyWeekly,
			domain.FrequencyMonthly, domain.FrequencyYearly,
		)),
		validation.Field(&request.Message, validation.Required.When(!isGmail && !isLocation)),
		validation.Field(&request.MailTo, validation.Required.When(isGmail), validation.Each(validation.Required)),
		validation.Field(&request.Subject, validation.Required.When(isGmail)),
		validation.Field(&request.Contacts, validation.Required.When(needsContact)),
		validation.Field(&request.TelegramUsername, validation.Required.When(isTelegram)),
		validation.Field(&request.LocationName, validation.Required.When(isLocation)),
		validation.Field(&request.Radius, validation.Required.When(isLocation), validation.When(isLocation, validation.Min(1.0))),
		validation.Field(&request.Latitude, validation.Min(-90.0), validation.Max(90.0)),
		validation.Field(&request.Longitude, validation.Min(-180.0), validation.Max(180.0)),
	)

	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return nil
}
