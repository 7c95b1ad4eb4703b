// Package i18n holds the user-facing message catalog. Translation is plain
// string substitution; {name} placeholders are replaced from args.
package i18n

import "strings"

type Lang string

const (
	PT Lang = "pt"
	EN Lang = "en"
	FR Lang = "fr"
)

// Default is used for unknown languages and missing keys.
const Default = PT

// Message keys.
const (
	ErrUnsupportedFormat = "ingest.unsupported_format"
	ErrProcessing        = "ingest.processing_error"
	ErrInvalidCSV        = "ingest.invalid_csv"
	NoticeOpaqueDataset  = "ingest.opaque_notice"
	DatasetIngested      = "ingest.done"

	AuthUserNotFound     = "auth.user_not_found"
	AuthWrongPassword    = "auth.wrong_password"
	AuthEmailInUse       = "auth.email_in_use"
	AuthInvalidNIF       = "auth.invalid_nif"
	AuthPasswordMismatch = "auth.password_mismatch"
	AuthRequired         = "auth.required"
	AuthAdminRequired    = "auth.admin_required"
	AuthPasswordReset    = "auth.password_reset"

	FormRequired     = "form.required"
	FormInvalidValue = "form.invalid_value"
	FormInvalidJSON  = "form.invalid_json"
	StatusInvalid    = "record.invalid_status"
	RecordNotFound   = "record.not_found"

	GeoPermissionDenied    = "geolocation.permission_denied"
	GeoPositionUnavailable = "geolocation.position_unavailable"
	GeoTimeout             = "geolocation.timeout"
	GeoUnsupported         = "geolocation.unsupported"
	SpeechUnsupported      = "speech.unsupported"

	AssistantGreeting      = "assistant.greeting"
	AssistantIncidents     = "assistant.incidents"
	AssistantWaste         = "assistant.waste"
	AssistantParticipation = "assistant.participation"
	AssistantLegislation   = "assistant.legislation"
	AssistantMap           = "assistant.map"
	AssistantFallback      = "assistant.fallback"
)

var catalog = map[Lang]map[string]string{
	PT: {
		ErrUnsupportedFormat: "Formato não suportado: {ext}",
		ErrProcessing:        "Erro ao processar o ficheiro.",
		ErrInvalidCSV:        "CSV inválido: {detail}",
		NoticeOpaqueDataset:  "O ficheiro foi guardado apenas como metadados. A visualização requer conversão no servidor.",
		DatasetIngested:      "Dataset \"{name}\" carregado com {count} elementos.",

		AuthUserNotFound:     "Utilizador não encontrado.",
		AuthWrongPassword:    "Palavra-passe incorreta.",
		AuthEmailInUse:       "Este email já está registado.",
		AuthInvalidNIF:       "O NIF deve ter 9 dígitos.",
		AuthPasswordMismatch: "As palavras-passe não coincidem.",
		AuthRequired:         "Sessão necessária.",
		AuthAdminRequired:    "Acesso reservado a administradores.",
		AuthPasswordReset:    "Palavra-passe atualizada.",

		FormRequired:     "Campo obrigatório em falta: {field}",
		FormInvalidValue: "Valor inválido: {field}",
		FormInvalidJSON:  "Pedido inválido.",
		StatusInvalid:    "Estado inválido: {status}",
		RecordNotFound:   "Registo não encontrado.",

		GeoPermissionDenied:    "Permissão de localização negada.",
		GeoPositionUnavailable: "Localização indisponível.",
		GeoTimeout:             "Tempo esgotado ao obter a localização.",
		GeoUnsupported:         "Geolocalização não suportada neste navegador.",
		SpeechUnsupported:      "Síntese de voz não suportada neste navegador.",

		AssistantGreeting:      "Olá! Sou o assistente do Terra Djunto. Em que posso ajudar?",
		AssistantIncidents:     "Para reportar uma ocorrência, abra \"Registo de Ocorrências\", descreva o problema e indique a localização no mapa.",
		AssistantWaste:         "Pode pedir a recolha de monos ou denunciar deposição ilegal na área de Resíduos.",
		AssistantParticipation: "Na área de Participação pode comentar projetos e programas em consulta pública.",
		AssistantLegislation:   "A legislação de ordenamento do território e de resíduos está disponível na área de Legislação.",
		AssistantMap:           "O mapa interativo mostra as camadas publicadas pelo município.",
		AssistantFallback:      "Não percebi a pergunta. Experimente perguntar sobre ocorrências, resíduos, participação, legislação ou o mapa.",
	},
	EN: {
		ErrUnsupportedFormat: "Unsupported format: {ext}",
		ErrProcessing:        "Error processing the file.",
		ErrInvalidCSV:        "Invalid CSV: {detail}",
		NoticeOpaqueDataset:  "The file was stored as metadata only. Displaying it requires a server-side conversion.",
		DatasetIngested:      "Dataset \"{name}\" loaded with {count} features.",

		AuthUserNotFound:     "User not found.",
		AuthWrongPassword:    "Wrong password.",
		AuthEmailInUse:       "This email is already registered.",
		AuthInvalidNIF:       "The NIF must have 9 digits.",
		AuthPasswordMismatch: "Passwords do not match.",
		AuthRequired:         "Login required.",
		AuthAdminRequired:    "Administrators only.",
		AuthPasswordReset:    "Password updated.",

		FormRequired:     "Missing required field: {field}",
		FormInvalidValue: "Invalid value: {field}",
		FormInvalidJSON:  "Invalid request.",
		StatusInvalid:    "Invalid status: {status}",
		RecordNotFound:   "Record not found.",

		GeoPermissionDenied:    "Location permission denied.",
		GeoPositionUnavailable: "Location unavailable.",
		GeoTimeout:             "Timed out getting the location.",
		GeoUnsupported:         "Geolocation is not supported by this browser.",
		SpeechUnsupported:      "Speech synthesis is not supported by this browser.",

		AssistantGreeting:      "Hello! I am the Terra Djunto assistant. How can I help?",
		AssistantIncidents:     "To report an incident, open \"Incident Reports\", describe the problem and mark the location on the map.",
		AssistantWaste:         "You can request bulky waste collection or report illegal dumping in the Waste area.",
		AssistantParticipation: "In the Participation area you can comment on projects and programs under public consultation.",
		AssistantLegislation:   "Planning and waste legislation is available in the Legislation area.",
		AssistantMap:           "The interactive map shows the layers published by the municipality.",
		AssistantFallback:      "I did not understand the question. Try asking about incidents, waste, participation, legislation or the map.",
	},
	FR: {
		ErrUnsupportedFormat: "Format non pris en charge : {ext}",
		ErrProcessing:        "Erreur lors du traitement du fichier.",
		ErrInvalidCSV:        "CSV invalide : {detail}",
		NoticeOpaqueDataset:  "Le fichier a été enregistré uniquement comme métadonnées. L'affichage nécessite une conversion côté serveur.",
		DatasetIngested:      "Jeu de données \"{name}\" chargé avec {count} éléments.",

		AuthUserNotFound:     "Utilisateur introuvable.",
		AuthWrongPassword:    "Mot de passe incorrect.",
		AuthEmailInUse:       "Cet email est déjà enregistré.",
		AuthInvalidNIF:       "Le NIF doit comporter 9 chiffres.",
		AuthPasswordMismatch: "Les mots de passe ne correspondent pas.",
		AuthRequired:         "Connexion requise.",
		AuthAdminRequired:    "Réservé aux administrateurs.",
		AuthPasswordReset:    "Mot de passe mis à jour.",

		FormRequired:     "Champ obligatoire manquant : {field}",
		FormInvalidValue: "Valeur invalide : {field}",
		FormInvalidJSON:  "Requête invalide.",
		StatusInvalid:    "Statut invalide : {status}",
		RecordNotFound:   "Enregistrement introuvable.",

		GeoPermissionDenied:    "Autorisation de localisation refusée.",
		GeoPositionUnavailable: "Position indisponible.",
		GeoTimeout:             "Délai dépassé pour obtenir la position.",
		GeoUnsupported:         "La géolocalisation n'est pas prise en charge par ce navigateur.",
		SpeechUnsupported:      "La synthèse vocale n'est pas prise en charge par ce navigateur.",

		AssistantGreeting:      "Bonjour ! Je suis l'assistant de Terra Djunto. Comment puis-je vous aider ?",
		AssistantIncidents:     "Pour signaler un incident, ouvrez \"Signalements\", décrivez le problème et indiquez l'emplacement sur la carte.",
		AssistantWaste:         "Vous pouvez demander l'enlèvement d'encombrants ou signaler un dépôt sauvage dans l'espace Déchets.",
		AssistantParticipation: "Dans l'espace Participation vous pouvez commenter les projets et programmes en consultation publique.",
		AssistantLegislation:   "La législation sur l'aménagement du territoire et les déchets est disponible dans l'espace Législation.",
		AssistantMap:           "La carte interactive affiche les couches publiées par la municipalité.",
		AssistantFallback:      "Je n'ai pas compris la question. Essayez de demander des informations sur les signalements, les déchets, la participation, la législation ou la carte.",
	},
}

// Parse maps a language tag such as "en-GB" to a supported Lang.
func Parse(tag string) (Lang, bool) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if i := strings.IndexAny(tag, "-_;,"); i >= 0 {
		tag = tag[:i]
	}
	l := Lang(tag)
	_, ok := catalog[l]
	return l, ok
}

// FromAcceptLanguage returns the first supported language in an Accept-Language header.
func FromAcceptLanguage(header string) (Lang, bool) {
	for _, part := range strings.Split(header, ",") {
		if l, ok := Parse(part); ok {
			return l, true
		}
	}
	return Default, false
}

// T translates key, substituting args given as name, value pairs.
func T(lang Lang, key string, args ...string) string {
	msgs, ok := catalog[lang]
	if !ok {
		msgs = catalog[Default]
	}
	msg, ok := msgs[key]
	if !ok {
		msg, ok = catalog[Default][key]
		if !ok {
			msg = key
		}
	}
	for i := 0; i+1 < len(args); i += 2 {
		msg = strings.ReplaceAll(msg, "{"+args[i]+"}", args[i+1])
	}
	return msg
}

// Catalog returns every message of lang for clients that render their own text.
func Catalog(lang Lang) map[string]string {
	src, ok := catalog[lang]
	if !ok {
		src = catalog[Default]
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// GeolocationMessage maps a browser GeolocationPositionError code.
func GeolocationMessage(lang Lang, code int) string {
	switch code {
	case 1:
		return T(lang, GeoPermissionDenied)
	case 2:
		return T(lang, GeoPositionUnavailable)
	case 3:
		return T(lang, GeoTimeout)
	}
	return T(lang, GeoUnsupported)
}
