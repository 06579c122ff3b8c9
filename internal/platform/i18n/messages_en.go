package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	lang := language.English

	// Auth notifications
	message.SetString(lang, "auth.signUpSuccess", "Account created")
	message.SetString(lang, "auth.welcomeMessage", "Welcome! Your account is ready.")
	message.SetString(lang, "auth.signUpError", "Sign up failed")
	message.SetString(lang, "auth.signInSuccess", "Signed in")
	message.SetString(lang, "auth.welcomeBack", "Welcome back!")
	message.SetString(lang, "auth.signInError", "Sign in failed")
	message.SetString(lang, "auth.signOutSuccess", "Signed out")
	message.SetString(lang, "auth.comeBackSoon", "Come back soon!")
	message.SetString(lang, "auth.signOutError", "Sign out failed")
	message.SetString(lang, "auth.resetPasswordSuccess", "Check your inbox")
	message.SetString(lang, "auth.resetPasswordEmailSent", "We sent you a link to reset your password.")
	message.SetString(lang, "auth.resetPasswordError", "Password reset failed")
	message.SetString(lang, "profile.loadError", "Your profile could not be loaded")

	// Auth failure descriptions
	message.SetString(lang, "auth.emailAlreadyInUse", "An account with this email already exists.")
	message.SetString(lang, "auth.invalidEmail", "The email address is not valid.")
	message.SetString(lang, "auth.weakPassword", "The password is too weak.")
	message.SetString(lang, "auth.invalidCredentials", "Invalid email or password.")
	message.SetString(lang, "auth.tooManyRequests", "Too many attempts. Please try again later.")
	message.SetString(lang, "auth.popupClosed", "The sign-in window was closed before finishing.")
	message.SetString(lang, "auth.popupBlocked", "The sign-in window could not be opened.")
	message.SetString(lang, "auth.userNotFound", "No account found with this email.")
	message.SetString(lang, "auth.unknownError", "Something went wrong. Please try again.")

	// Form validation
	message.SetString(lang, "form.nameTooShort", "Name must be at least 2 characters.")
	message.SetString(lang, "form.invalidEmail", "Please enter a valid email address.")
	message.SetString(lang, "form.passwordTooShort", "Password must be at least 6 characters.")
	message.SetString(lang, "form.passwordsDontMatch", "Passwords don't match.")
	message.SetString(lang, "form.resetTokenInvalid", "This reset link is invalid or has expired.")
}
