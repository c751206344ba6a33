//go:build !darwin

package permissions

func CheckMicrophone() bool { return true }

func RequestMicrophone() bool { return true }

func CheckAccessibility() bool { return true }

func RequestAccessibility() bool { return true }
