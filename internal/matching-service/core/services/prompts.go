package services

import "fmt"

// Rider and driver facing texts, in Kirundi.
const (
	msgWelcome = "*Karibu ku rubuga Tujane*\n" +
		"Aho mushobora kuronka uwubatwara ahariho hose mu gisagara ca Bujumbura.\n\n" +
		"*Muri hehe ubu?*\n\n" +
		"Akarorero: Ku Mutanga kuri kaminuza y'Uburundi."

	msgAskPickup = "*Muri hehe ubu?*\n\nAkarorero: Ku Mutanga kuri kaminuza y'Uburundi."

	msgAskDestination = "*Mwipfuza kuja hehe?*\n\nAkarorero: Muri Centre Ville kuri Bata."

	msgAskPassengers = "*Mushaka kugenda muri bangahe?*\n\nAndika igiharuro kiri *hagati ya 1 na 6*."

	msgTooManyAttempts = "Mumaze kugerageza incuro nyinshi. Muragerageza inyuma y'akanya gato."

	msgCreateFailed = "Hari ibitagenze neza turiko turategura urugendo rwanyu. Muragerageza kandi mukanya."

	msgBroadcastFailed = "Hari ibitagenze neza turiko turabaronderera uwubatwara. Muragerageza kandi mukanya."

	driverRegistrationURL = "https://forms.gle/1BUdz4kW32BbXc4v6"
)

func summaryPrompt(pickup, destination string, passengers int) string {
	return fmt.Sprintf("*Ivyerekeye urugendo rwanyu:*\n\n"+
		"- Muri aha: \"%s\".\n"+
		"- Mugiye aha: \"%s\".\n"+
		"- Igitigiri c'abantu: %d.\n\n"+
		"Andika \"*Ego*\" kugira mwemeze runo rugendo, canke mwandike \"*Oya*\" kugira muruhebe.",
		pickup, destination, passengers)
}

func riderConfirmation(code string) string {
	return fmt.Sprintf("Urugendo rwanyu *#%s* rwemejwe. Turiko turabaronderera uwubatwara.\n\n"+
		"Turaza gusangiza numero yanyu uwuza kubatwara.\n"+
		"Araza kubahamagara hanyuma muze kwumvikana ku vyerekeye amahera, hamwe naho yobasanga.\n\n"+
		"Nimutaba muraronka uwubandikira n'umwe mu minota 20 (mirongo ibiri), n'uko ata mu dereva "+
		"azoba yemeye kubatwara ku mvo z'uko atari hafi canke atabishoboye. Muce mugerageza bushasha.\n\n"+
		"Mukaba mwipfuza namwe gutwara abandi kandi mukinjiza amafaranga, nimwiyandikishe muciye hano %s",
		code, driverRegistrationURL)
}

func driverOffer(pickup, destination string, passengers int, code string) string {
	return fmt.Sprintf("🔴🚗Hari umuntu ariko ararondera uwumutwara.\n\n"+
		"- Ari aha: *%s*.\n"+
		"- Ashaka kuja aha: *%s*.\n"+
		"- Igitigiri c'abantu: *%d*.\n\n"+
		"Andika code ya runo rugendo, ariyo *%s* mu minota itarenze 20 (mirongo ibiri) "+
		"kugira mushobore kwemeza ko mugiye gutwara uno muntu.",
		pickup, destination, passengers, code)
}

func claimRejected(code string) string {
	return fmt.Sprintf("Hari ibitagenze neza turiko turabaha gutwara urugendo #%s. "+
		"Bino bikunze kuba iyo urwo rugendo rwahawe uwundi mu dereva, canke iyo ingendeshwa yanyu "+
		"idafise ubushobozi bwo gutwara abiyunguruza muri urwo rugendo bose, canke mukaba mwanditse code itariyo.",
		code)
}

func claimFailed(code string) string {
	return fmt.Sprintf("Hari ibitagenze neza turiko turabaha gutwara urugendo #%s.", code)
}

func driverWon(code, riderPhone string) string {
	return fmt.Sprintf("🎉Mwatsindiye urugendo #%s! Murashobora kwandikira uwo mugiye gutwara kuri ino numero: +%s",
		code, riderPhone)
}

func riderMatched(code, name, phone, plate, carType string) string {
	return fmt.Sprintf("🎉🚗Twashoboye kuronka uwubatwara mu rugendo #%s. "+
		"Ibiranga uwuza kubatwara ni bino bikurikira:\n\n"+
		"Izina: *%s*.\n"+
		"Numero: *+%s*.\n"+
		"Plaque/Imparati: *%s*.\n"+
		"Ingendeshwa: *%s*.\n\n"+
		"Araza kubahamagara mukanya, ariko namwe murashobora kumuhamagara kuri +%s.\n\n"+
		"Murakoze guhitamwo urubuga Tujane.",
		code, name, phone, plate, carType, phone)
}

func rideClaimedNotice(code, driverPhone string) string {
	return fmt.Sprintf("Urugendo #%s rwamaze gufatwa na @+%s", code, driverPhone)
}
