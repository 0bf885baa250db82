package controllers

// ConfigErrorMessage exposes configErrorMessage to the external test package.
const ConfigErrorMessage = configErrorMessage
