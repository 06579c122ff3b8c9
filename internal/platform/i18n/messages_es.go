package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	lang := language.Spanish

	// Auth notifications
	message.SetString(lang, "auth.signUpSuccess", "Cuenta creada")
	message.SetString(lang, "auth.welcomeMessage", "¡Bienvenido! Tu cuenta está lista.")
	message.SetString(lang, "auth.signUpError", "Error al registrarse")
	message.SetString(lang, "auth.signInSuccess", "Sesión iniciada")
	message.SetString(lang, "auth.welcomeBack", "¡Bienvenido de nuevo!")
	message.SetString(lang, "auth.signInError", "Error al iniciar sesión")
	message.SetString(lang, "auth.signOutSuccess", "Sesión cerrada")
	message.SetString(lang, "auth.comeBackSoon", "¡Vuelve pronto!")
	message.SetString(lang, "auth.signOutError", "Error al cerrar sesión")
	message.SetString(lang, "auth.resetPasswordSuccess", "Revisa tu correo")
	message.SetString(lang, "auth.resetPasswordEmailSent", "Te enviamos un enlace para restablecer tu contraseña.")
	message.SetString(lang, "auth.resetPasswordError", "Error al restablecer la contraseña")
	message.SetString(lang, "profile.loadError", "No se pudo cargar tu perfil")

	// Auth failure descriptions
	message.SetString(lang, "auth.emailAlreadyInUse", "Ya existe una cuenta con este correo.")
	message.SetString(lang, "auth.invalidEmail", "El correo electrónico no es válido.")
	message.SetString(lang, "auth.weakPassword", "La contraseña es demasiado débil.")
	message.SetString(lang, "auth.invalidCredentials", "Correo o contraseña incorrectos.")
	message.SetString(lang, "auth.tooManyRequests", "Demasiados intentos. Inténtalo más tarde.")
	message.SetString(lang, "auth.popupClosed", "La ventana de inicio de sesión se cerró antes de terminar.")
	message.SetString(lang, "auth.popupBlocked", "No se pudo abrir la ventana de inicio de sesión.")
	message.SetString(lang, "auth.userNotFound", "No hay ninguna cuenta con este correo.")
	message.SetString(lang, "auth.unknownError", "Algo salió mal. Inténtalo de nuevo.")

	// Form validation
	message.SetString(lang, "form.nameTooShort", "El nombre debe tener al menos 2 caracteres.")
	message.SetString(lang, "form.invalidEmail", "Introduce un correo electrónico válido.")
	message.SetString(lang, "form.passwordTooShort", "La contraseña debe tener al menos 6 caracteres.")
	message.SetString(lang, "form.passwordsDontMatch", "Las contraseñas no coinciden.")
	message.SetString(lang, "form.resetTokenInvalid", "El enlace de restablecimiento no es válido o ha caducado.")
}
